package audiosearch

type Config struct {
	DBPath        string
	TempDir       string
	SampleRate    int
	MinSimilarity float64 // matches below this percentage are dropped
	MaxMatches    int     // 0 keeps every match
	Logger        Logger
	Storage       Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithMinSimilarity(pct float64) Option {
	return func(c *Config) {
		c.MinSimilarity = pct
	}
}

func WithMaxMatches(n int) Option {
	return func(c *Config) {
		c.MaxMatches = n
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:        "audiosearch.sqlite3",
		TempDir:       "/tmp",
		SampleRate:    11025,
		MinSimilarity: 0,
		MaxMatches:    0,
		Logger:        nil,
	}
}
