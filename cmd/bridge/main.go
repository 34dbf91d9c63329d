// bootstrap of a Lambda function implemented by a native shared library
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/localstack/lambda-native-bridge/internal/aws/lambda"
	"github.com/localstack/lambda-native-bridge/internal/bridge"
	"github.com/localstack/lambda-native-bridge/internal/config"
	"github.com/localstack/lambda-native-bridge/internal/credentials"
	"github.com/localstack/lambda-native-bridge/internal/logging"
	"github.com/localstack/lambda-native-bridge/internal/metrics"
	"github.com/localstack/lambda-native-bridge/internal/native"
	"github.com/localstack/lambda-native-bridge/internal/server"
	"github.com/localstack/lambda-native-bridge/internal/utils"
)

const shutdownTimeout = 5 * time.Second

func main() {
	opts, err := config.Parse(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			_, _ = os.Stdout.WriteString(flagsErr.Message + "\n")
			return
		}
		log.Fatalln("Invalid configuration:", err)
	}
	config.UnsetBridgeEnvs()
	if err := opts.LoadEnvFile(); err != nil {
		log.Fatalln(err)
	}

	logCollector := logging.NewLogCollector()
	if opts.Listen != "" {
		err = logging.Configure(opts.LogLevel, opts.LogFormat, logCollector)
	} else {
		err = logging.Configure(opts.LogLevel, opts.LogFormat)
	}
	if err != nil {
		log.Fatalln(err)
	}

	// the library is loaded once, a failure here ends the process before any invocation
	lib, err := native.Load(native.LoadOptions{
		Path:       opts.LibraryPath,
		Name:       opts.LibraryName,
		Symbol:     opts.EntryPoint,
		SearchDirs: native.DefaultSearchDirs(),
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to load native handler")
	}
	defer lib.Close()

	buffers, err := native.NewBuffers(opts.MaxResponseSize, opts.MaxContentTypeSize)
	if err != nil {
		log.Fatalln(err)
	}
	provider, err := credentials.New(opts.CredentialSource)
	if err != nil {
		log.Fatalln(err)
	}

	function := lambda.FromLambdaContext()
	if opts.Listen != "" {
		function = lambda.FromEnvironment()
	}

	bridgeOptions := bridge.Options{
		ExitCodePolicy: opts.ExitCodePolicy,
		Metrics:        metrics.NewPublisher(opts.MetricsNamespace, function.FunctionName, function.Region),
	}
	if opts.Report {
		bridgeOptions.ReportWriter = os.Stdout
	}
	b := bridge.New(native.NewAdapter(lib, buffers), provider, function, bridgeOptions)

	handlerName := opts.ResolvedHandlerName()
	log.WithFields(log.Fields{
		"handler": handlerName,
		"build":   bridge.StampedBuildID,
	}).Debug("Bridge initialized")

	if opts.Listen == "" {
		if _, missing := utils.LookupEnvVars("AWS_LAMBDA_RUNTIME_API", "_HANDLER"); len(missing) > 0 {
			log.Warnln("Missing Lambda runtime environment variables:", missing)
		}
		awslambda.Start(b.Handler(handlerName))
		return
	}

	if err := serve(opts.Listen, server.NewInvokeService(b, handlerName, function, logCollector)); err != nil {
		log.Fatalln(err)
	}
}

// serve runs the local invoke server until SIGINT or SIGTERM.
func serve(addr string, api *server.InvokeService) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(addr, api)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Local invoke server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Debugln("Shutting down local invoke server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
