package routes

import (
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/lgcert/indigene-certificate/config"
	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/auth"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/lgcert/indigene-certificate/internal/identity"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/notification"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/lgcert/indigene-certificate/internal/reports"
	"github.com/lgcert/indigene-certificate/internal/superadmin"
	"github.com/lgcert/indigene-certificate/logger"
	"github.com/lgcert/indigene-certificate/utils"
)

// Infra is the set of external clients opened by main. Redis and Messaging
// may be nil.
type Infra struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Messaging *messaging.Client
	Log       *logger.Logger
}

// Services holds every domain service shared by the router and the
// background workers.
type Services struct {
	Audit           auditlog.Service
	Auth            auth.Service
	LocalGovernment localgovernment.Service
	Fields          dynamicfield.Service
	Certificates    certificate.Service
	Applications    application.Service
	Digitization    digitization.Service
	Identity        identity.Service
	Payments        payment.Service
	Notifications   notification.Service
	Reports         reports.Service
	SuperAdmin      *superadmin.Service

	Files     *utils.FileStore
	Mock      *payment.MockGateway
	Publisher event.Publisher

	closers []func() error
}

// Close releases the publisher connection.
func (s *Services) Close() error {
	var errs []string
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close services: %s", strings.Join(errs, "; "))
	}
	return nil
}

// KafkaEnabled reports whether events leave the process through Kafka.
func KafkaEnabled(cfg *config.Config) bool {
	return len(cfg.KafkaBrokers) > 0
}

func BuildServices(cfg *config.Config, infra Infra) (*Services, error) {
	log := infra.Log
	db := infra.DB
	s := &Services{}

	files, err := utils.NewFileStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	s.Files = files

	s.Audit = auditlog.NewService(auditlog.NewRepository(db), log)
	s.Auth = auth.NewService(auth.NewRepository(db), cfg, s.Audit)

	var hub notification.Hub = notification.NewLocalHub()
	if infra.Redis != nil {
		hub = notification.NewRedisHub(infra.Redis)
	}
	push := notification.NewPushChannel(nil)
	if infra.Messaging != nil {
		push = notification.NewPushChannel(infra.Messaging)
	}
	s.Notifications = notification.NewService(notification.NewRepository(db), utils.NewMailer(cfg), push, hub, s.Auth, log)

	if KafkaEnabled(cfg) {
		kp := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		s.Publisher = kp
		s.closers = append(s.closers, kp.Close)
		log.Infof("publishing events to kafka topic %s", cfg.KafkaTopic)
	} else {
		s.Publisher = event.NewSyncPublisher(log, s.Notifications)
		log.Info("kafka not configured, dispatching events in process")
	}

	s.LocalGovernment = localgovernment.NewService(localgovernment.NewRepository(db), s.Audit)
	s.Fields = dynamicfield.NewService(dynamicfield.NewRepository(db), s.Audit)
	s.Certificates = certificate.NewService(certificate.NewRepository(db), s.Audit, s.Publisher, cfg.VerifyURL, log)
	s.Applications = application.NewService(application.NewRepository(db), s.LocalGovernment, s.Fields, s.Certificates, s.Publisher, s.Audit, log)
	s.Digitization = digitization.NewService(digitization.NewRepository(db), s.LocalGovernment, s.Certificates, s.Applications, s.Publisher, s.Audit, log)

	records := map[string]lifecycle.RecordStore{
		application.RecordType:  s.Applications,
		digitization.RecordType: s.Digitization,
	}

	s.Identity = identity.NewService(ninRegistry(cfg, infra), records, s.Audit)

	gateway, err := paymentGateway(cfg, s)
	if err != nil {
		return nil, err
	}
	s.Payments = payment.NewService(payment.NewRepository(db), gateway, records, s.LocalGovernment, s.Publisher, s.Audit, payment.Config{
		Currency:    cfg.Currency,
		CallbackURL: cfg.PaymentReturnURL(),
	}, log)

	s.Reports = reports.NewService(reports.NewRepository(db), reports.NewExporter(), s.Audit)
	s.SuperAdmin = superadmin.NewService(s.Auth, s.Applications, s.Digitization, s.Certificates, s.Payments, s.Audit)
	return s, nil
}

func ninRegistry(cfg *config.Config, infra Infra) identity.Registry {
	var base identity.Registry
	if cfg.NINRegistryURL != "" {
		base = identity.NewHTTPRegistry(cfg.NINRegistryURL, cfg.NINRegistryKey, 5)
		infra.Log.Infof("NIN lookups go to %s", cfg.NINRegistryURL)
	} else {
		base = identity.NewMemoryRegistry(identity.SampleIdentities()...)
		infra.Log.Warn("NIN_REGISTRY_URL not set, using the in-memory registry")
	}

	var cache identity.Cache = identity.NewMemoryCache()
	if infra.Redis != nil {
		cache = identity.NewRedisCache(infra.Redis)
	}
	return identity.NewCachedRegistry(base, cache, cfg.NINCacheTTL, infra.Log)
}

func paymentGateway(cfg *config.Config, s *Services) (payment.Gateway, error) {
	switch cfg.PaymentGateway {
	case "razorpay":
		if cfg.RazorpayKey == "" || cfg.RazorpaySecret == "" {
			return nil, fmt.Errorf("razorpay gateway needs RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET")
		}
		return payment.NewRazorpayGateway(cfg.RazorpayKey, cfg.RazorpaySecret), nil
	case "mock", "":
		secret := cfg.RazorpaySecret
		if secret == "" {
			secret = cfg.JWTAccessSecret
		}
		base := strings.TrimRight(cfg.APIBaseURL, "/")
		s.Mock = payment.NewMockGateway(secret, cfg.PaymentAutoCapture, func(reference string) string {
			return base + "/api/v1/payments/checkout/" + reference
		})
		return s.Mock, nil
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.PaymentGateway)
	}
}
