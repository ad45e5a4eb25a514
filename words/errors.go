package words

import "errors"

// ErrNoWords is returned when the store has no words to pick from.
var ErrNoWords = errors.New("words: store is empty")

// ErrNotFound is returned when a word slug does not exist in the store.
var ErrNotFound = errors.New("words: word not found")
