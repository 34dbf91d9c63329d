package config

import (
	"fmt"
	"math"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/localstack/lambda-native-bridge/internal/utils"
	log "github.com/sirupsen/logrus"
)

// EnvPrefix is shared by every environment variable read by the bridge itself.
const EnvPrefix = "NATIVE_BRIDGE_"

const (
	// AWS Lambda limits
	// Ref: http://docs.aws.amazon.com/lambda/latest/dg/limits.html
	DefaultMaxResponseSize    = 6 * 1024 * 1024
	DefaultMaxContentTypeSize = 1024
)

const (
	ExitCodeIgnore = "ignore"
	ExitCodeFail   = "fail"
)

// Options holds the bridge configuration. Every option is available as a flag and as a
// NATIVE_BRIDGE_* environment variable, since Lambda starts the bootstrap without arguments.
type Options struct {
	LibraryPath string `long:"library" env:"NATIVE_BRIDGE_LIBRARY" description:"Path of the native shared library. Looked up in the task root when empty."`
	LibraryName string `long:"library-name" env:"NATIVE_BRIDGE_LIBRARY_NAME" default:"libhandler.so" description:"File name used for the library lookup"`
	EntryPoint  string `long:"entrypoint" env:"NATIVE_BRIDGE_ENTRYPOINT" default:"Lambda" description:"Exported symbol implementing the invocation ABI"`
	HandlerName string `long:"handler" env:"NATIVE_BRIDGE_HANDLER" description:"Handler name passed to the entry point (defaults to _HANDLER, then the function name)"`

	MaxResponseSize    int `long:"max-response-size" env:"NATIVE_BRIDGE_MAX_RESPONSE_SIZE" default:"6291456" description:"Capacity of the shared response body buffer in bytes"`
	MaxContentTypeSize int `long:"max-content-type-size" env:"NATIVE_BRIDGE_MAX_CONTENT_TYPE_SIZE" default:"1024" description:"Capacity of the shared content type buffer in bytes"`

	ExitCodePolicy   string `long:"exit-code-policy" env:"NATIVE_BRIDGE_EXIT_CODE_POLICY" default:"ignore" choice:"ignore" choice:"fail" description:"How a non-zero native exit code is treated"`
	CredentialSource string `long:"credentials" env:"NATIVE_BRIDGE_CREDENTIALS" default:"env" choice:"env" choice:"chain" choice:"legacy" description:"Credential supplier used for every invocation"`

	LogLevel  string `long:"log-level" env:"NATIVE_BRIDGE_LOG_LEVEL" default:"info" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal" choice:"panic"`
	LogFormat string `long:"log-format" env:"NATIVE_BRIDGE_LOG_FORMAT" default:"text" choice:"text" choice:"json"`

	Listen           string `long:"listen" env:"NATIVE_BRIDGE_LISTEN" description:"Serve the local invoke API on this address instead of the Lambda runtime API"`
	MetricsNamespace string `long:"metrics-namespace" env:"NATIVE_BRIDGE_METRICS_NAMESPACE" description:"CloudWatch namespace for per-invocation metrics, disabled when empty"`
	Report           bool   `long:"report" env:"NATIVE_BRIDGE_REPORT" description:"Print END/REPORT lines after every invocation"`
	EnvFile          string `long:"env-file" env:"NATIVE_BRIDGE_ENV_FILE" description:"dotenv file with function environment variables, for local runs"`
}

// Parse reads the options from args (without the program name) and the environment.
func Parse(args []string) (*Options, error) {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks invariants go-flags cannot express.
func (o *Options) Validate() error {
	// one byte of each buffer is reserved for the terminator
	if o.MaxResponseSize < 2 {
		return fmt.Errorf("max response size must be at least 2 bytes, got %d", o.MaxResponseSize)
	}
	if o.MaxContentTypeSize < 2 {
		return fmt.Errorf("max content type size must be at least 2 bytes, got %d", o.MaxContentTypeSize)
	}
	// both capacities are passed to the entry point as C int
	if o.MaxResponseSize > math.MaxInt32 {
		return fmt.Errorf("max response size must not exceed %d bytes, got %d", math.MaxInt32, o.MaxResponseSize)
	}
	if o.MaxContentTypeSize > math.MaxInt32 {
		return fmt.Errorf("max content type size must not exceed %d bytes, got %d", math.MaxInt32, o.MaxContentTypeSize)
	}
	switch o.ExitCodePolicy {
	case ExitCodeIgnore, ExitCodeFail:
	default:
		return fmt.Errorf("invalid exit code policy: %q", o.ExitCodePolicy)
	}
	if o.EntryPoint == "" {
		return fmt.Errorf("entry point symbol must not be empty")
	}
	return nil
}

// ResolvedHandlerName returns the handler name passed across the native boundary.
func (o *Options) ResolvedHandlerName() string {
	if o.HandlerName != "" {
		return o.HandlerName
	}
	return utils.FirstNonEmptyEnv("_HANDLER", "AWS_LAMBDA_FUNCTION_NAME")
}

// LoadEnvFile exports the variables of EnvFile. Variables already set are kept.
func (o *Options) LoadEnvFile() error {
	if o.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(o.EnvFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", o.EnvFile, err)
	}
	log.WithField("path", o.EnvFile).Debug("Loaded function environment")
	return nil
}

// UnsetBridgeEnvs unsets the bridge specific environment variables so the native library
// observes the same environment as any other function runtime.
func UnsetBridgeEnvs() {
	for _, envKey := range utils.EnvWithPrefix(EnvPrefix) {
		if err := os.Unsetenv(envKey); err != nil {
			log.Warnln("Could not unset environment variable:", envKey, err)
		}
	}
}
