package config

// The sections below marshal durations as strings such as "5s" so that
// printed configuration can be pasted back into .fileclaim.yml.

// MarshalYAML implements yaml.Marshaler.
func (c FilterConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Patterns           []string `yaml:"patterns"`
		Regex              string   `yaml:"regex"`
		IgnoreHidden       bool     `yaml:"ignore_hidden"`
		AcceptOnce         bool     `yaml:"accept_once"`
		AcceptOnceCapacity int      `yaml:"accept_once_capacity"`
		Persistent         bool     `yaml:"persistent"`
		MinAge             string   `yaml:"min_age"`
	}{c.Patterns, c.Regex, c.IgnoreHidden, c.AcceptOnce, c.AcceptOnceCapacity, c.Persistent, c.MinAge.String()}, nil
}

// MarshalYAML implements yaml.Marshaler.
func (c TriggerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Kind     string `yaml:"kind"`
		Interval string `yaml:"interval"`
		Cron     string `yaml:"cron"`
		Debounce string `yaml:"debounce"`
	}{c.Kind, c.Interval.String(), c.Cron, c.Debounce.String()}, nil
}

// MarshalYAML implements yaml.Marshaler.
func (c ConsumerConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Command       []string `yaml:"command"`
		ArchiveDir    string   `yaml:"archive_dir"`
		Timeout       string   `yaml:"timeout"`
		MaxConcurrent int      `yaml:"max_concurrent"`
	}{c.Command, c.ArchiveDir, c.Timeout.String(), c.MaxConcurrent}, nil
}
