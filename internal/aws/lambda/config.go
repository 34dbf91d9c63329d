package lambda

import (
	"strconv"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/localstack/lambda-native-bridge/internal/utils"
)

// Defaults used when running outside of Lambda, e.g. behind the local invoke server.
const (
	DefaultFunctionName    = "test_function"
	DefaultFunctionVersion = "$LATEST"
	DefaultMemorySizeMb    = 3008
	DefaultLogGroupName    = "/aws/lambda/Functions"
	DefaultLogStreamName   = "$LATEST"
)

type FunctionConfig struct {
	FunctionName         string // AWS_LAMBDA_FUNCTION_NAME
	FunctionMemorySizeMb int    // AWS_LAMBDA_FUNCTION_MEMORY_SIZE
	FunctionVersion      string // AWS_LAMBDA_FUNCTION_VERSION
	LogGroupName         string // AWS_LAMBDA_LOG_GROUP_NAME
	LogStreamName        string // AWS_LAMBDA_LOG_STREAM_NAME
	Region               string // AWS_REGION
}

// FromLambdaContext reads the function scoped values aws-lambda-go loaded at startup.
func FromLambdaContext() FunctionConfig {
	return FunctionConfig{
		FunctionName:         lambdacontext.FunctionName,
		FunctionMemorySizeMb: lambdacontext.MemoryLimitInMB,
		FunctionVersion:      lambdacontext.FunctionVersion,
		LogGroupName:         lambdacontext.LogGroupName,
		LogStreamName:        lambdacontext.LogStreamName,
		Region:               utils.FirstNonEmptyEnv("AWS_REGION", "AWS_DEFAULT_REGION"),
	}
}

// FromEnvironment reads the function configuration from the AWS_LAMBDA_* variables and
// falls back to the same defaults the Lambda runtime emulator uses.
func FromEnvironment() FunctionConfig {
	memorySize, err := strconv.Atoi(utils.GetEnvWithDefault("AWS_LAMBDA_FUNCTION_MEMORY_SIZE", ""))
	if err != nil || memorySize <= 0 {
		memorySize = DefaultMemorySizeMb
	}
	return FunctionConfig{
		FunctionName:         nonEmpty(utils.GetEnvWithDefault("AWS_LAMBDA_FUNCTION_NAME", ""), DefaultFunctionName),
		FunctionMemorySizeMb: memorySize,
		FunctionVersion:      nonEmpty(utils.GetEnvWithDefault("AWS_LAMBDA_FUNCTION_VERSION", ""), DefaultFunctionVersion),
		LogGroupName:         nonEmpty(utils.GetEnvWithDefault("AWS_LAMBDA_LOG_GROUP_NAME", ""), DefaultLogGroupName),
		LogStreamName:        nonEmpty(utils.GetEnvWithDefault("AWS_LAMBDA_LOG_STREAM_NAME", ""), DefaultLogStreamName),
		Region:               utils.FirstNonEmptyEnv("AWS_REGION", "AWS_DEFAULT_REGION"),
	}
}

func nonEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
