package ui

// Config contains window/input/audio settings for the desktop front-end.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor

	AudioLowLatency bool // hard-cap the oto buffer for minimal latency
	Mute            bool

	BackupPath string // cartridge backup file path; not read by this package
	StatePath  string // base path for save-state slots (StatePath+".<slot>.gst")
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "goba"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
