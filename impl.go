package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"shipfo/services/discord"
	"shipfo/services/session"
	"shipfo/services/store"
)

const (
	sessionCookie = "shipfo_session"
	sessionMaxAge = 30 * 24 * 60 * 60
)

type Server struct {
	Store    store.Service
	Auth     discord.AuthService
	Discord  discord.Service
	Sessions session.Service
}

func NewServer(storeService store.Service, auth discord.AuthService, discordService discord.Service, sessions session.Service) *Server {
	return &Server{
		Store:    storeService,
		Auth:     auth,
		Discord:  discordService,
		Sessions: sessions,
	}
}

func (s *Server) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ping": "pong"})
}

type loginRequest struct {
	Code string `json:"code" binding:"required"`
}

// Login exchanges the OAuth code, materializes the user and starts a session.
// First sign-in registers the user; later sign-ins refresh the stored profile.
func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	ctx := c.Request.Context()

	token, err := s.Auth.GetAccessToken(ctx, req.Code)
	if err != nil {
		log.Warn().Err(err).Msg("token exchange rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	profile, err := s.Discord.GetCurrentUser(ctx, token.Bearer())
	if err != nil {
		if errors.Is(err, discord.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		log.Error().Err(err).Msg("failed to fetch current user")
		c.JSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable"})
		return
	}

	exists, err := s.Store.UserExists(ctx, profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var user *store.User
	if !exists {
		user, err = s.Store.RegisterUser(ctx, store.Profile{
			ID:            profile.ID,
			Username:      profile.Username,
			Avatar:        profile.Avatar,
			Discriminator: profile.Discriminator,
			PublicFlags:   profile.PublicFlags,
			Locale:        profile.Locale,
			PremiumType:   profile.PremiumType,
		})
	} else {
		user, err = s.Store.UpdateUser(ctx, profile.ID, store.UserUpdate{
			Username:      profile.Username,
			Avatar:        profile.Avatar,
			Discriminator: profile.Discriminator,
			PublicFlags:   profile.PublicFlags,
			Locale:        profile.Locale,
			PremiumType:   profile.PremiumType,
		})
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sessionToken, err := s.Sessions.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.SetCookie(sessionCookie, sessionToken, sessionMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, user)
}

// currentUser resolves the session cookie to a user, writing the error
// response itself when that fails.
func (s *Server) currentUser(c *gin.Context) (*store.User, bool) {
	token, err := c.Cookie(sessionCookie)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
		return nil, false
	}
	userID, err := s.Sessions.Verify(token)
	if err != nil {
		c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return nil, false
	}
	user, err := s.Store.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return user, true
}

func (s *Server) Me(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

type createShipRequest struct {
	P0 string `json:"p0" binding:"required"`
	P1 string `json:"p1" binding:"required"`
}

// CreateShip links two registered users. If the pair already has a ship the
// caller is toggled onto it instead of a duplicate being created.
func (s *Server) CreateShip(c *gin.Context) {
	me, ok := s.currentUser(c)
	if !ok {
		return
	}
	var req createShipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "p0 and p1 are required"})
		return
	}
	ctx := c.Request.Context()

	for _, id := range []string{req.P0, req.P1} {
		exists, err := s.Store.UserExists(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !exists {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "These people aren't registered to our system yet. Share this website with them so you can ship them!",
			})
			return
		}
	}

	first, err := s.Store.GetUser(ctx, req.P0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	second, err := s.Store.GetUser(ctx, req.P1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ship, err := s.Store.GetShipByMembers(ctx, first.DocID, second.DocID)
	if errors.Is(err, store.ErrShipNotFound) {
		ship, err = s.Store.RegisterShip(ctx, []string{first.DocID, second.DocID}, []string{me.DocID}, me.DocID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	_, ship, err = s.Store.ToggleShip(ctx, me, ship)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ship)
}

func (s *Server) GetShip(c *gin.Context) {
	ctx := c.Request.Context()
	ship, err := s.Store.GetShipByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrShipNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ship not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	people := make([]store.User, 0, len(ship.People))
	for _, docID := range ship.People {
		member, err := s.Store.GetUserByDocID(ctx, docID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		people = append(people, *member)
	}
	c.JSON(http.StatusOK, gin.H{"ship": ship, "people": people})
}

func (s *Server) ToggleShip(c *gin.Context) {
	me, ok := s.currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ship, err := s.Store.GetShipByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrShipNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ship not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	user, ship, err := s.Store.ToggleShip(ctx, me, ship)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ship": ship, "user": user})
}

func (s *Server) Logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
