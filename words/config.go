package words

// Config configures the word service.
type Config struct {
	// WordsPerDay is how many entries a daily payload carries.
	WordsPerDay int
}

func (c *Config) defaults() {
	if c.WordsPerDay <= 0 {
		c.WordsPerDay = 4
	}
}
