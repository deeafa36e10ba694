package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"openmusic/internal/app/albums"
	"openmusic/internal/app/exports"
	"openmusic/internal/app/likes"
	"openmusic/internal/app/playlists"
	"openmusic/internal/auth"
	"openmusic/internal/broker"
	"openmusic/internal/cache"
	"openmusic/internal/config"
	"openmusic/internal/httpapi"
	"openmusic/internal/store"
)

func newHTTPHandler(cfg *config.Config, db *sql.DB, redis *cache.Client, mq *broker.Client) http.Handler {
	dataStore := store.New(db)

	albumSvc := albums.New(dataStore)
	playlistSvc := playlists.New(dataStore)

	likesCache := cache.NewBestEffort(redis, log.With().Str("component", "likes_cache").Logger())
	likeSvc := likes.New(dataStore, albumSvc, likesCache, cfg.Redis.LikesTTL)

	// Ownership for exports goes through the same check the playlist routes use.
	exportSvc := exports.New(playlistSvc, mq, cfg.RabbitMQ.ExportQueue)

	tokens := auth.NewTokenManager(cfg.Security.AccessTokenKey)

	return httpapi.New(albumSvc, likeSvc, playlistSvc, exportSvc, tokens,
		httpapi.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
		httpapi.WithHealthCheck("database", db.PingContext),
		httpapi.WithHealthCheck("redis", redis.Ping),
		httpapi.WithHealthCheck("rabbitmq", func(context.Context) error {
			if !mq.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}),
	).Routes()
}
