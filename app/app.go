package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/property_backend/attachments"
	"github.com/mmdatafocus/property_backend/blobstore"
	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/propertysync"
	"github.com/mmdatafocus/property_backend/remote"
	"github.com/mmdatafocus/property_backend/resolver"
	"github.com/mmdatafocus/property_backend/syncstatus"
	"github.com/mmdatafocus/property_backend/utils"
	"github.com/sirupsen/logrus"
)

// App holds the wired services shared by the HTTP service and the admin CLI.
type App struct {
	Store        datastore.Datastore
	Writer       *datastore.Writer
	Tracker      *syncstatus.Tracker
	Resolver     *resolver.Resolver
	Properties   *propertysync.Orchestrator
	Attachments  *attachments.Service
	RemoteClient *remote.Client
}

// Build connects the datastore (and Redis when configured), runs migrations
// unless skipped, and wires the services. Remote sync is enabled only when
// REMOTE_CLIENT_ID is set.
func Build(ctx context.Context) (*App, error) {
	logger := config.GetLogger()

	var store datastore.Datastore
	if config.GetDBDriver() == config.DBDriverMemory {
		store = datastore.NewMemoryStore()
	} else {
		config.ConnectDatabaseWithRetry()
		db := config.GetDB()
		if !config.SkipMigrations() {
			models.MigrateTable(db)
		} else {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
		}
		store = datastore.NewGormStore(db)
	}
	config.ConnectRedisWithRetry()

	blobs, err := blobstore.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob storage: %w", err)
	}

	a := &App{Store: store, Writer: datastore.NewWriter(store)}
	a.Tracker = syncstatus.NewTracker(a.Writer)

	var ownerRemote resolver.OwnerRemote
	var tickets *attachments.TicketHandler
	var opts []propertysync.Option
	client, err := remote.NewClientFromEnv()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "remote"}).Warn("remote sync not configured: " + err.Error())
	} else {
		a.RemoteClient = client
		ownerRemote = client
		tickets = attachments.NewTicketHandlerFromEnv(client)
		opts = append(opts, propertysync.WithRemote(client))
	}
	if lock := config.GetRedisLock(); lock != nil {
		ttl := time.Duration(utils.EnvIntDefault("REMOTE_SYNC_LOCK_SECONDS", 120)) * time.Second
		opts = append(opts, propertysync.WithLocker(propertysync.NewRedisLocker(lock, ttl)))
	}

	a.Resolver = resolver.New(a.Writer, ownerRemote)
	a.Properties = propertysync.New(a.Writer, a.Tracker, a.Resolver, opts...)
	a.Attachments = attachments.NewService(a.Writer, blobs, tickets, a.Resolver, a.Tracker)
	return a, nil
}
