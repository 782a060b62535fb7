package services

import (
	"storeadmin_server/database"
	"storeadmin_server/repository"
	"storeadmin_server/structs"

	"github.com/MonkyMars/gecho"
)

type ServiceManager struct {
	EmailService   *EmailService
	CacheService   *CacheService
	HealthService  *HealthService
	ImportService  *ImportService
	OrderService   *OrderService
	ReturnService  *ReturnService
	BookingService *BookingService
	StatsService   *StatsService
	ChangeFeed     *ChangeFeed
	Refresher      *StatsRefresher
}

// NewServiceManager wires the services over the bun repositories. db must be connected.
func NewServiceManager(logger *gecho.Logger, cfg *structs.Config, db *database.DB) *ServiceManager {
	feed := NewChangeFeed()
	notifier := NewPgNotifier(logger, db, cfg.Database.NotifyChan, feed)
	return newServiceManager(logger, cfg, repository.NewRepositories(db), db, notifier, feed)
}

// NewServiceManagerWithRepositories wires the services over any repository
// set, publishing changes straight to the in-process feed
func NewServiceManagerWithRepositories(logger *gecho.Logger, cfg *structs.Config, repos *repository.Repositories) *ServiceManager {
	feed := NewChangeFeed()
	return newServiceManager(logger, cfg, repos, nil, feed, feed)
}

func newServiceManager(
	logger *gecho.Logger,
	cfg *structs.Config,
	repos *repository.Repositories,
	db *database.DB,
	notifier ChangeNotifier,
	feed *ChangeFeed,
) *ServiceManager {
	cacheService := NewCacheService(logger, cfg)
	emailService := NewEmailService(logger, cfg)

	var pinger Pinger
	if db != nil {
		pinger = db
	}
	healthService := NewHealthService(logger, pinger)

	var images ImageVerifier
	if cfg.Import.VerifyImages {
		images = NewHTTPImageVerifier(cfg.Import.ImageTimeout)
	}

	var mailer Mailer
	if emailService.Enabled() {
		mailer = emailService
	}

	importService := NewImportService(logger, repos, images, notifier, cfg.Database.QueryTimeout)
	orderService := NewOrderService(logger, repos, notifier, mailer)
	returnService := NewReturnService(logger, repos, notifier, mailer)
	bookingService := NewBookingService(logger, repos, notifier)
	statsService := NewStatsService(logger, repos, cacheService, cfg.Stats)
	refresher := NewStatsRefresher(logger, statsService, feed, cfg.Stats.Debounce)

	return &ServiceManager{
		EmailService:   emailService,
		CacheService:   cacheService,
		HealthService:  healthService,
		ImportService:  importService,
		OrderService:   orderService,
		ReturnService:  returnService,
		BookingService: bookingService,
		StatsService:   statsService,
		ChangeFeed:     feed,
		Refresher:      refresher,
	}
}
