package handler

import (
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// SellerHandler serves the public seller profile shown on listing pages.
type SellerHandler struct {
	authClient *auth.Client
	listings   service.ListingService
}

func NewSellerHandler(authClient *auth.Client, listings service.ListingService) *SellerHandler {
	return &SellerHandler{authClient: authClient, listings: listings}
}

type PublicSellerResponse struct {
	UID            string  `json:"uid"`
	DisplayName    string  `json:"displayName"`
	PhotoURL       *string `json:"photoURL"`
	ActiveListings int     `json:"activeListings"`
}

func (h *SellerHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid uid"))
	}
	user, err := h.authClient.GetUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "seller not found"))
	}
	active := 0
	if listings, err := h.listings.ListBySeller(c.Request().Context(), uid); err == nil {
		for _, l := range listings {
			if l.Status == model.ListingStatusActive {
				active++
			}
		}
	}
	resp := PublicSellerResponse{
		UID:            user.UID,
		DisplayName:    user.DisplayName,
		PhotoURL:       strPtrOrNil(user.PhotoURL),
		ActiveListings: active,
	}
	return c.JSON(http.StatusOK, resp)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
