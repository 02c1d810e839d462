package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"

	"shipfo/clients/gcp"
	"shipfo/envvars"
	"shipfo/services/avatar"
	"shipfo/services/discord"
	"shipfo/services/session"
	"shipfo/services/store"
)

const profileRefreshInterval = 15 * time.Minute

func main() {
	env := envvars.GetEvn()
	ctx := context.Background()

	firestore := gcp.CreateFirestore(ctx, env.ProjectID)
	defer firestore.Close()

	httpClient := resty.New()
	storeService := store.NewService(store.NewFirestorePersistence(firestore))
	authService := discord.NewAuthService(httpClient, env.ClientID, env.ClientSecret, env.RedirectURI)
	discordService := discord.NewService(httpClient, env.BotToken)
	sessionService := session.NewService(env.SessionKey)

	var avatarService avatar.Service
	if env.AvatarBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatalf("Failed to create storage client: %v", err)
		}
		defer storageClient.Close()
		avatarService = avatar.NewService(httpClient, storageClient, env.AvatarBucket)
	}

	server := NewServer(storeService, authService, discordService, sessionService)

	go refreshProfiles(ctx, storeService, discordService, avatarService)

	r := gin.Default()
	r.Use(cors.Default())

	r.GET("/ping", server.Ping)
	r.POST("/login", server.Login)
	r.POST("/logout", server.Logout)
	r.GET("/me", server.Me)
	r.POST("/ships", server.CreateShip)
	r.GET("/ships/:id", server.GetShip)
	r.POST("/ships/:id/toggle", server.ToggleShip)

	s := &http.Server{
		Handler: r,
		Addr:    "0.0.0.0:" + env.Port,
	}

	slog.Info("Starting HTTP server", "port", env.Port)
	log.Fatal(s.ListenAndServe())
}

// refreshProfiles keeps stored profile attributes loosely in sync with the
// identity provider. Profiles are eventually consistent; a failed refresh is
// retried on the next tick.
func refreshProfiles(ctx context.Context, storeService store.Service, discordService discord.Service, avatarService avatar.Service) {
	ticker := time.NewTicker(profileRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		users, err := storeService.ListUsers(ctx)
		if err != nil {
			slog.With("error", err.Error()).Error("failed to list users for profile refresh")
			continue
		}
		for _, u := range users {
			profile, err := discordService.FetchUser(ctx, u.ID, true)
			if err != nil {
				slog.With("error", err.Error()).Warn("failed to refresh profile", "userId", u.ID)
				continue
			}
			if _, err := storeService.UpdateUser(ctx, u.ID, store.UserUpdate{
				Username:      profile.Username,
				Avatar:        profile.Avatar,
				Discriminator: profile.Discriminator,
				PublicFlags:   profile.PublicFlags,
				Locale:        profile.Locale,
				PremiumType:   profile.PremiumType,
			}); err != nil {
				slog.With("error", err.Error()).Warn("failed to store refreshed profile", "userId", u.ID)
				continue
			}
			if avatarService != nil && profile.Avatar != u.Avatar {
				if err := avatarService.Mirror(ctx, profile.ID, profile.Avatar); err != nil {
					slog.With("error", err.Error()).Warn("failed to mirror avatar", "userId", u.ID)
				}
			}
		}
	}
}
