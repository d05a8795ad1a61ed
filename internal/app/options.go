package app

import (
	"io"

	"github.com/spf13/pflag"

	"github.com/hitoshi/trialman/internal/config"
)

// Options はコマンドライン引数の解析結果。
type Options struct {
	Command Command
	EnvFile string
	// EnvFileRequired は--env-fileが明示された場合にtrueになる。
	// 明示されたファイルが存在しない場合は起動エラーにする。
	EnvFileRequired bool
}

// ParseArgs はフラグとサブコマンドを解析する。フラグはサブコマンドの前後どちらにも置ける。
func ParseArgs(args []string) (*Options, error) {
	fs := pflag.NewFlagSet("trialman", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envFile := fs.String("env-file", config.DefaultEnvFile, "path to a .env file loaded before reading the environment")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Options{
		Command:         ParseCommand(fs.Args()),
		EnvFile:         *envFile,
		EnvFileRequired: fs.Changed("env-file"),
	}, nil
}
