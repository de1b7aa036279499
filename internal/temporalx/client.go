package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

const namespaceEnsureTimeout = 10 * time.Second

// ErrPermanent wraps failures Retry must not repeat.
var ErrPermanent = errors.New("temporal: permanent failure")

// Retry runs fn until it succeeds, returns an error wrapping ErrPermanent,
// ctx ends, or cfg.DialMaxWait elapses. Waits follow Backoff.
func Retry(ctx context.Context, log *logger.Logger, cfg Config, what string, fn func(ctx context.Context, attempt int) error) error {
	deadline := time.Now().Add(cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				log.Info("temporal ready", "op", what, "attempts", attempt)
			}
			return nil
		}
		if errors.Is(err, ErrPermanent) || cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			return fmt.Errorf("temporal %s (address=%s namespace=%s): %w", what, cfg.Address, cfg.Namespace, err)
		}
		wait := Backoff(cfg.DialBackoff, cfg.DialBackoffMax, attempt)
		log.Warn("temporal retry", "op", what, "attempt", attempt, "wait", wait.String(), "error", err)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// NewClient dials Temporal under Retry. An empty Address returns a nil
// client, which leaves asynchronous rebuilds unavailable.
func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (temporalsdkclient.Client, error) {
	if cfg.Address == "" {
		log.Warn("TEMPORAL_ADDRESS not set; async rebuilds disabled")
		return nil, nil
	}
	opts, err := clientOptions(log, cfg, true)
	if err != nil {
		return nil, err
	}

	var c temporalsdkclient.Client
	err = Retry(ctx, log, cfg, "dial", func(ctx context.Context, _ int) error {
		dctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		var derr error
		c, derr = temporalsdkclient.DialContext(dctx, opts)
		return derr
	})
	if err != nil {
		return nil, err
	}
	if cfg.AutoRegisterNamespace {
		if err := EnsureNamespace(ctx, log, cfg); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func clientOptions(log *logger.Logger, cfg Config, withNamespace bool) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	// The namespace client must omit the namespace so it can register one
	// that does not exist yet.
	if withNamespace {
		opts.Namespace = cfg.Namespace
	}
	if cfg.mTLS() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return opts, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}
	return opts, nil
}

// EnsureNamespace registers cfg.Namespace when it is missing. Managed
// deployments should pre-provision instead.
func EnsureNamespace(ctx context.Context, log *logger.Logger, cfg Config) error {
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" || strings.TrimSpace(cfg.Address) == "" {
		return nil
	}
	opts, err := clientOptions(log, cfg, false)
	if err != nil {
		return err
	}
	nsClient, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer nsClient.Close()

	ctx, cancel := context.WithTimeout(ctx, namespaceEnsureTimeout)
	defer cancel()
	retention := durationpb.New(time.Duration(cfg.NamespaceRetentionDays) * 24 * time.Hour)

	return Retry(ctx, log, cfg, "ensure namespace", func(ctx context.Context, _ int) error {
		_, err := nsClient.Describe(ctx, namespace)
		var notFound *serviceerror.NamespaceNotFound
		if errors.As(err, &notFound) {
			err = nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
				Namespace:                        namespace,
				Description:                      "tenantsearch analytics rebuilds",
				WorkflowExecutionRetentionPeriod: retention,
			})
			var exists *serviceerror.NamespaceAlreadyExists
			if errors.As(err, &exists) {
				err = nil
			}
			if err == nil {
				log.Info("temporal namespace registered", "namespace", namespace)
			}
		}
		if err != nil && !isRetryableRPC(err) {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return err
	})
}

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, errors.New("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH must both be set")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load key pair: %w", err)
	}
	out := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return out, nil
	}
	pem, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: read ca: %w", err)
	}
	out.RootCAs = x509.NewCertPool()
	if !out.RootCAs.AppendCertsFromPEM(pem) {
		return nil, errors.New("temporal tls: ca file holds no certificates")
	}
	return out, nil
}

// Backoff doubles base per attempt, capped at max. A zero base means 250ms.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt; i++ {
		if max > 0 && d >= max {
			break
		}
		d *= 2
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
			return true
		}
		return false
	}
	return errors.Is(err, context.DeadlineExceeded)
}
