// Command bucketgate serves the object storage gateway over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/kbukum/bucketgate/auth/jwt"
	"github.com/kbukum/bucketgate/bootstrap"
	"github.com/kbukum/bucketgate/config"
	"github.com/kbukum/bucketgate/gateway"
	"github.com/kbukum/bucketgate/httpapi"
	"github.com/kbukum/bucketgate/logger"
	"github.com/kbukum/bucketgate/observability"
	"github.com/kbukum/bucketgate/redis"
	"github.com/kbukum/bucketgate/server"
	"github.com/kbukum/bucketgate/server/middleware"
	"github.com/kbukum/bucketgate/storage"
	"github.com/kbukum/bucketgate/version"

	_ "github.com/kbukum/bucketgate/storage/memory"
	_ "github.com/kbukum/bucketgate/storage/minio"
	_ "github.com/kbukum/bucketgate/storage/s3"
)

const serviceName = "bucketgate"

type flags struct {
	configFile  string
	envFile     string
	initBucket  bool
	showVersion bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	fs.StringVarP(&f.configFile, "config", "c", "", "path to config.yml (default: search cmd/bucketgate, config, .)")
	fs.StringVar(&f.envFile, "env-file", "", "path to a .env file")
	fs.BoolVar(&f.initBucket, "init-bucket", false, "create the bucket if missing, report it and exit")
	fs.BoolVarP(&f.showVersion, "version", "v", false, "print version and exit")
	return f, fs.Parse(args)
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	if f.showVersion {
		fmt.Println(serviceName, version.Get().String())
		return
	}
	if err := run(context.Background(), f); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	var cfg AppConfig
	opts := []config.LoaderOption{}
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	telemetry := observability.NewTelemetry(cfg.Observability, observability.ServiceInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, log)
	store := storage.NewComponent(cfg.ObjStore, log)
	if err := app.RegisterComponent(telemetry); err != nil {
		return err
	}
	if err := app.RegisterComponent(store); err != nil {
		return err
	}
	var shared *redis.Component
	if cfg.Redis.Enabled && !f.initBucket {
		shared = redis.NewComponent(cfg.Redis, log)
		if err := app.RegisterComponent(shared); err != nil {
			return err
		}
	}

	var gw *gateway.Gateway
	app.OnStart(func(ctx context.Context) error {
		metrics, err := observability.NewOperationMetrics(observability.Meter("bucketgate/gateway"))
		if err != nil {
			return fmt.Errorf("gateway metrics: %w", err)
		}
		gw = gateway.New(store.Client(), cfg.ObjStore, cfg.Gateway, log, gateway.WithMetrics(metrics))
		return gw.EnsureBucket(ctx, cfg.ObjStore.ObjectLocking)
	})

	if f.initBucket {
		return app.RunTask(ctx, func(ctx context.Context) error {
			return reportBucket(ctx, gw, log)
		})
	}

	srv := server.New(cfg.Server, log)
	httpServer := server.NewComponent(srv)
	app.OnConfigure(func(_ context.Context, app *bootstrap.App[*AppConfig]) error {
		srv.AddMetricsSource("bucket", func(ctx context.Context) any {
			if m := gw.GetMetrics(ctx); m != nil {
				return m
			}
			return nil
		})
		srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)

		var rates middleware.RateStore
		if shared != nil {
			rates = shared.Limiter()
		}
		mws, err := apiMiddleware(&cfg, rates)
		if err != nil {
			return err
		}
		httpapi.New(gw, log).Register(srv.GinEngine(), mws...)
		return nil
	})
	// The listener opens only after routes exist and closes before the
	// store client is released.
	app.OnReady(httpServer.Start)
	app.OnStop(httpServer.Stop)
	app.Summary.Track(httpServer)

	return app.Run(ctx)
}

// apiMiddleware builds the chain guarding /api: bearer auth first so the
// rate limiter can key on the token subject. A nil rates keeps windows in
// process.
func apiMiddleware(cfg *AppConfig, rates middleware.RateStore) ([]gin.HandlerFunc, error) {
	var mws []gin.HandlerFunc
	if cfg.Auth.Enabled {
		tokens, err := jwt.NewService(cfg.Auth.JWT, func() *jwt.Claims { return &jwt.Claims{} })
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		mws = append(mws, middleware.Auth(middleware.AuthConfig{
			Validator: tokens,
			SkipPaths: cfg.Auth.SkipPaths,
		}))
	}
	if cfg.Server.RateLimit.Enabled {
		limit := cfg.Server.RateLimit
		limit.Store = rates
		mws = append(mws, middleware.RateLimit(limit))
	}
	return mws, nil
}

func reportBucket(ctx context.Context, gw *gateway.Gateway, log *logger.Logger) error {
	fields := logger.Fields(logger.FieldBucket, gw.Bucket())
	if m := gw.GetMetrics(ctx); m != nil {
		fields["sampled_size"] = m.Size
		fields["last_modified"] = m.LastModified
	}
	log.Info("Bucket ready", fields)
	return nil
}
