package config

const (
	// DefaultParallelism runs jobs one at a time unless the operator
	// asks for more.
	DefaultParallelism = 1

	DefaultPipelineCommand = "appserv-run"
	DefaultApp             = "GenomeAnnotation"
	DefaultLogDir          = "logs"
	DefaultLogLevel        = "info"
	DefaultStoreRegion     = "auto"
)

// DefaultSpecDirs are searched for parameter-schema files when the config
// file names none.
var DefaultSpecDirs = []string{"/usr/share/gannet/app_specs", "app_specs"}

// DefaultConfig returns a Config with all default values applied.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Region: DefaultStoreRegion,
		},
		Pipeline: PipelineConfig{
			Command:  DefaultPipelineCommand,
			App:      DefaultApp,
			SpecDirs: append([]string(nil), DefaultSpecDirs...),
		},
		Parallelism: DefaultParallelism,
		LogDir:      DefaultLogDir,
		LogLevel:    DefaultLogLevel,
	}
}
