package envvars

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

const (
	DiscordClientID     = "DISCORD_CLIENT_ID"
	DiscordClientSecret = "DISCORD_CLIENT_SECRET"
	DiscordBotToken     = "DISCORD_BOT_TOKEN"
	DiscordRedirectURI  = "DISCORD_REDIRECT_URI"
	GCPProjectID        = "GCP_PROJECT_ID"
	SessionSecret       = "SESSION_SECRET"
	AvatarBucket        = "AVATAR_BUCKET"
	Environment         = "ENVIRONMENT"
	Port                = "PORT"
)

const (
	ProductionEnv = "production"
	DevEnv        = "dev"
)

type Env struct {
	ClientID     string
	ClientSecret string
	BotToken     string
	RedirectURI  string
	ProjectID    string
	SessionKey   string
	AvatarBucket string
	Environment  string
	Port         string
}

func GetEvn() Env {
	_ = godotenv.Load()

	clientID, ok := os.LookupEnv(DiscordClientID)
	if !ok {
		log.Fatalf("%s required", DiscordClientID)
	}
	clientSecret, ok := os.LookupEnv(DiscordClientSecret)
	if !ok {
		log.Fatalf("%s required", DiscordClientSecret)
	}
	botToken, ok := os.LookupEnv(DiscordBotToken)
	if !ok {
		log.Fatalf("%s required", DiscordBotToken)
	}
	redirectURI, ok := os.LookupEnv(DiscordRedirectURI)
	if !ok {
		log.Fatalf("%s required", DiscordRedirectURI)
	}
	projectID, ok := os.LookupEnv(GCPProjectID)
	if !ok {
		log.Fatalf("%s required", GCPProjectID)
	}
	sessionKey, ok := os.LookupEnv(SessionSecret)
	if !ok {
		log.Fatalf("%s required", SessionSecret)
	}
	environment, ok := os.LookupEnv(Environment)
	if !ok {
		environment = DevEnv
	}
	port, ok := os.LookupEnv(Port)
	if !ok {
		port = "8080"
	}
	return Env{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BotToken:     botToken,
		RedirectURI:  redirectURI,
		ProjectID:    projectID,
		SessionKey:   sessionKey,
		AvatarBucket: os.Getenv(AvatarBucket),
		Environment:  environment,
		Port:         port,
	}
}

func IsProd(e Env) bool {
	return e.Environment == ProductionEnv
}

func IsDev(e Env) bool {
	return e.Environment == DevEnv
}
