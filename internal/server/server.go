package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/edimarket/marketplace-backend/internal/ai"
	"github.com/edimarket/marketplace-backend/internal/config"
	"github.com/edimarket/marketplace-backend/internal/handler"
	appmw "github.com/edimarket/marketplace-backend/internal/middleware"
	"github.com/edimarket/marketplace-backend/internal/repository"
	"github.com/edimarket/marketplace-backend/internal/service"
	"github.com/edimarket/marketplace-backend/internal/vecindex"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Server struct {
	e           *echo.Echo
	listingRepo repository.ListingRepository
	convRepo    repository.ConversationRepository
	index       *vecindex.PGVector
	sha         string
	build       string
}

func New(db *gorm.DB, cfg *config.Config, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			host := u.Hostname()
			if strings.HasSuffix(host, "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	embedder := ai.NewEmbeddingClient(cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	recommender := ai.NewRecommendClient(cfg.GeminiAPIKey, cfg.ChatModel)
	index := vecindex.NewPGVector(db)

	listingRepo := repository.NewListingRepository(db)
	listingSvc := service.NewListingService(listingRepo, index, embedder)
	listingHandler := handler.NewListingHandler(listingSvc)

	convRepo := repository.NewConversationRepository(db)
	chatSvc := service.NewChatService(convRepo, listingRepo, index, embedder, recommender, service.ChatOptions{
		TopK:          cfg.ChatTopK,
		MinSimilarity: cfg.ChatMinSimilarity,
		HistoryLimit:  cfg.ChatHistoryLimit,
	})
	chatHandler := handler.NewChatHandler(chatSvc)

	authMw, err := appmw.NewAuthMiddleware(context.Background())
	if err != nil {
		e.Logger.Fatalf("failed to init firebase auth: %v", err)
	}
	var sellerHandler *handler.SellerHandler
	if authMw != nil && authMw.Client() != nil {
		sellerHandler = handler.NewSellerHandler(authMw.Client(), listingSvc)
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api")
	api.POST("/bot/chat", chatHandler.Chat, authMw.RequireAuth)
	api.GET("/bot/conversations", chatHandler.ListConversations, authMw.RequireAuth)
	api.GET("/bot/conversations/:id", chatHandler.GetConversation, authMw.RequireAuth)
	api.DELETE("/bot/conversations/:id", chatHandler.DeleteConversation, authMw.RequireAuth)
	api.POST("/listings", listingHandler.Create, authMw.RequireAuth)
	api.PUT("/listings/:id", listingHandler.Update, authMw.RequireAuth)
	api.GET("/me/listings", listingHandler.ListMine, authMw.RequireAuth)
	api.GET("/listings", listingHandler.List)
	api.GET("/listings/search", listingHandler.Search)
	api.GET("/listings/:id", listingHandler.Get)
	if sellerHandler != nil {
		api.GET("/sellers/:uid", sellerHandler.GetPublic)
	}

	return &Server{e: e, listingRepo: listingRepo, convRepo: convRepo, index: index, sha: sha, build: buildTime}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// SetDB injects the database connection once it becomes available; the
// server accepts requests before that and repositories report not-ready.
func (s *Server) SetDB(db *gorm.DB) {
	if s.listingRepo != nil {
		s.listingRepo.SetDB(db)
	}
	if s.convRepo != nil {
		s.convRepo.SetDB(db)
	}
	if s.index != nil {
		s.index.SetDB(db)
	}
}
