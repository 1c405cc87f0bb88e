package config

import "github.com/spf13/pflag"

// CLI holds the flags common to every runtime simulator binary, grounded
// on cmd/direwolf/main.go's pflag.*P() style (short + long forms, default
// baked into the flag itself rather than resolved later).
type CLI struct {
	BoardFile  *string
	LogLevel   *string
	TraceDir   *string
	Headless   *bool
}

// RegisterFlags adds the common flag set to fs (typically pflag.CommandLine).
func RegisterFlags(fs *pflag.FlagSet) *CLI {
	return &CLI{
		BoardFile: fs.StringP("board-file", "b", "board.yaml", "Board descriptor YAML file."),
		LogLevel:  fs.StringP("log-level", "v", "info", "Log level: debug, info, warn, error."),
		TraceDir:  fs.StringP("trace-dir", "t", "", "Directory for rotating trace log files. rtxsim accepts this flag but writes no trace files."),
		Headless:  fs.BoolP("headless", "H", false, "Run without a real audio/GPIO backend, using hosted loopback stand-ins."),
	}
}
