package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/agentgate/adapters/aptos"
	"github.com/layer-3/agentgate/adapters/events"
	"github.com/layer-3/agentgate/adapters/signature"
	"github.com/layer-3/agentgate/adapters/store"
	"github.com/layer-3/agentgate/adapters/tokenizer"
	"github.com/layer-3/agentgate/dispatcher"
	"github.com/layer-3/agentgate/internal/config"
	"github.com/layer-3/agentgate/internal/logging"
	"github.com/layer-3/agentgate/internal/vault"
	"github.com/layer-3/agentgate/ports"
	"github.com/layer-3/agentgate/protocols"
	"github.com/layer-3/agentgate/service"
	transport "github.com/layer-3/agentgate/transport/http"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("agentgate stopped")
	}
}

type stores struct {
	nonces  ports.NonceStore
	revoked ports.RevocationStore
	keys    ports.KeyStore
	redis   *redis.Client
}

func openStores(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (stores, error) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, using in-memory stores; state is lost on restart and not shared between instances")
		nonces := store.NewMemoryNonceStore()
		revoked := store.NewMemoryRevocationStore()
		store.StartJanitor(ctx, cfg.NonceTTL, nonces, revoked)
		return stores{
			nonces:  nonces,
			revoked: revoked,
			keys:    store.NewMemoryKeyStore(),
		}, nil
	}

	// Parse Redis URL and create client
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return stores{}, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return stores{}, fmt.Errorf("failed to reach Redis: %w", err)
	}

	return stores{
		nonces:  store.NewRedisNonceStore(client),
		revoked: store.NewRedisRevocationStore(client),
		keys:    store.NewRedisKeyStore(client),
		redis:   client,
	}, nil
}

// newPublisher streams events through Redis when it is available. Otherwise
// events go to an in-process channel nobody subscribes to.
func newPublisher(cfg config.Config, client *redis.Client, log logrus.FieldLogger) (message.Publisher, error) {
	logger := logging.NewWatermillLogger(log)
	if !cfg.EventsEnabled || client == nil {
		return gochannel.NewGoChannel(gochannel.Config{}, logger), nil
	}

	// Initialize Watermill Redis publisher
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}
	return publisher, nil
}

func signingKey(cfg config.Config, log logrus.FieldLogger) (*ecdsa.PrivateKey, error) {
	if cfg.SessionSigningKey == "" {
		log.Warn("SESSION_SIGNING_KEY not set, generating an ephemeral key; sessions will not survive a restart")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.SessionSigningKey))
	if err != nil {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY: %w", err)
	}
	return key, nil
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.redis != nil {
		defer st.redis.Close()
	}

	publisher, err := newPublisher(cfg, st.redis, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	privateKey, err := signingKey(cfg, log)
	if err != nil {
		return err
	}

	schemes, err := signature.NewSchemes(cfg.AuthDefaultChain, signature.NewAptos(), signature.NewEthereum())
	if err != nil {
		return err
	}

	v, err := vault.New(cfg.VaultIterations)
	if err != nil {
		return err
	}

	eventPub := events.NewWatermillPublisher(publisher)

	authService := service.NewAuthService(
		service.AuthConfig{NonceWindow: cfg.NonceTTL, SessionTTL: cfg.SessionTTL},
		tokenizer.NewJWTTokenizer(privateKey),
		st.nonces,
		st.revoked,
		schemes,
		eventPub,
		log,
	)

	agentService := service.NewAgentService(
		st.keys,
		v,
		cfg.VaultPassword,
		protocols.Default(protocols.MainnetAddresses()),
		dispatcher.New(dispatcher.Config{
			Timeout:      cfg.SubmitTimeout,
			MaxGasAmount: cfg.MaxGasAmount,
			GasUnitPrice: cfg.GasUnitPrice,
			TxExpiry:     cfg.TxExpiry,
			ChainID:      cfg.AptosChainID,
		}, aptos.NewBCSEncoder(), log),
		aptos.NewClient(cfg.AptosNodeURL, cfg.SubmitTimeout),
		eventPub,
		log,
	)

	limiter := transport.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, log)
	limiter.StartCleanup(10*time.Minute, ctx.Done())

	// Setup Gin router
	router := transport.SetupRouter(authService, agentService, transport.RouterConfig{
		Cookie: transport.CookieConfig{
			Name:   cfg.SessionCookie,
			Secure: cfg.SessionCookieSecure,
		},
		RateLimiter: limiter,
	}, log)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SubmitTimeout+5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
