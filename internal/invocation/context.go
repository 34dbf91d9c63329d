// Package invocation builds the request payload handed to the native entry point.
package invocation

import (
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/localstack/lambda-native-bridge/internal/aws/lambda"
)

// InvocationContext is the flat, language neutral view of the Lambda context the native
// handler receives under the "context" key.
type InvocationContext struct {
	FunctionName       string         `json:"functionName"`
	FunctionVersion    string         `json:"functionVersion"`
	InvokedFunctionArn string         `json:"invokedFunctionArn"`
	MemoryLimitInMB    int            `json:"memoryLimitInMB"`
	AwsRequestID       string         `json:"awsRequestId"`
	LogGroupName       string         `json:"logGroupName"`
	LogStreamName      string         `json:"logStreamName"`
	Identity           *Identity      `json:"identity,omitempty"`
	ClientContext      *ClientContext `json:"client_context,omitempty"`
}

type Identity struct {
	CognitoIdentityID     string `json:"cognitoIdentityId"`
	CognitoIdentityPoolID string `json:"cognitoIdentityPoolId"`
}

// ClientContext keeps the key names native handlers already decode.
type ClientContext struct {
	InstallationID string            `json:"installation_id"`
	AppTitle       string            `json:"app_title"`
	AppVersionName string            `json:"app_version_name"`
	AppVersionCode string            `json:"app_version_code"`
	Custom         map[string]string `json:"Custom"`
	Env            map[string]string `json:"env"`
}

// Normalize converts the host context into an InvocationContext. Optional records are
// only set when the host supplied them. A nil lc yields a context without request values.
func Normalize(lc *lambdacontext.LambdaContext, fn lambda.FunctionConfig) InvocationContext {
	ic := InvocationContext{
		FunctionName:    fn.FunctionName,
		FunctionVersion: fn.FunctionVersion,
		MemoryLimitInMB: fn.FunctionMemorySizeMb,
		LogGroupName:    fn.LogGroupName,
		LogStreamName:   fn.LogStreamName,
	}
	if lc == nil {
		return ic
	}

	ic.AwsRequestID = lc.AwsRequestID
	ic.InvokedFunctionArn = lc.InvokedFunctionArn

	if lc.Identity.CognitoIdentityID != "" || lc.Identity.CognitoIdentityPoolID != "" {
		ic.Identity = &Identity{
			CognitoIdentityID:     lc.Identity.CognitoIdentityID,
			CognitoIdentityPoolID: lc.Identity.CognitoIdentityPoolID,
		}
	}

	if hasClientContext(lc.ClientContext) {
		ic.ClientContext = &ClientContext{
			InstallationID: lc.ClientContext.Client.InstallationID,
			AppTitle:       lc.ClientContext.Client.AppTitle,
			AppVersionName: lc.ClientContext.Client.AppVersionName,
			AppVersionCode: lc.ClientContext.Client.AppVersionCode,
			Custom:         copyMap(lc.ClientContext.Custom),
			Env:            copyMap(lc.ClientContext.Env),
		}
	}
	return ic
}

func hasClientContext(cc lambdacontext.ClientContext) bool {
	client := cc.Client
	return client.InstallationID != "" ||
		client.AppTitle != "" ||
		client.AppVersionName != "" ||
		client.AppVersionCode != "" ||
		len(cc.Custom) > 0 ||
		len(cc.Env) > 0
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
