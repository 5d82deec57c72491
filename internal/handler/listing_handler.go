package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/edimarket/marketplace-backend/internal/model"
	"github.com/edimarket/marketplace-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type ListingHandler struct {
	svc service.ListingService
}

func NewListingHandler(svc service.ListingService) *ListingHandler {
	return &ListingHandler{svc: svc}
}

type ListingResponse struct {
	ID          string  `json:"id"`
	SellerUID   string  `json:"sellerUid"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    *string `json:"category,omitempty"`
	PricePence  int64   `json:"pricePence"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type ListingListResponse struct {
	Listings []ListingResponse `json:"listings"`
	Total    int64             `json:"total"`
}

type CreateListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    *string `json:"category"`
	PricePence  int64   `json:"pricePence"`
}

type UpdateListingRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PricePence  *int64  `json:"pricePence"`
	Status      *string `json:"status"`
}

type SearchResultResponse struct {
	Listing    ListingResponse `json:"listing"`
	Similarity float64         `json:"similarity"`
}

type SearchResponse struct {
	Results []SearchResultResponse `json:"results"`
}

func (h *ListingHandler) Create(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	listing, err := h.svc.Create(c.Request().Context(), uid, req.Title, req.Description, req.PricePence, req.Category)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusCreated, toListingResponse(listing))
}

func (h *ListingHandler) Update(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req UpdateListingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	listing, err := h.svc.Update(c.Request().Context(), c.Param("id"), uid, service.ListingUpdate{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PricePence:  req.PricePence,
		Status:      req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "listing not found"))
		case errors.Is(err, service.ErrForbidden):
			return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not the seller"))
		default:
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
		}
	}
	return c.JSON(http.StatusOK, toListingResponse(listing))
}

func (h *ListingHandler) Get(c echo.Context) error {
	listing, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "listing not found"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch listing"))
	}
	return c.JSON(http.StatusOK, toListingResponse(listing))
}

func (h *ListingHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	listings, total, err := h.svc.List(c.Request().Context(), limit, offset, c.QueryParam("status"), c.QueryParam("category"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch listings"))
	}
	resp := ListingListResponse{
		Listings: make([]ListingResponse, 0, len(listings)),
		Total:    total,
	}
	for i := range listings {
		resp.Listings = append(resp.Listings, toListingResponse(&listings[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ListingHandler) ListMine(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	listings, err := h.svc.ListBySeller(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch listings"))
	}
	resp := ListingListResponse{
		Listings: make([]ListingResponse, 0, len(listings)),
		Total:    int64(len(listings)),
	}
	for i := range listings {
		resp.Listings = append(resp.Listings, toListingResponse(&listings[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ListingHandler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "q is required"))
	}
	k, _ := strconv.Atoi(c.QueryParam("k"))
	minSimilarity := 0.3
	if raw := c.QueryParam("minSimilarity"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "minSimilarity must be in [0,1]"))
		}
		minSimilarity = parsed
	}
	results, err := h.svc.Search(c.Request().Context(), query, k, minSimilarity)
	if err != nil {
		if isUpstream(err) {
			return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_error", "search is temporarily unavailable"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to search listings"))
	}
	resp := SearchResponse{Results: make([]SearchResultResponse, 0, len(results))}
	for i := range results {
		resp.Results = append(resp.Results, SearchResultResponse{
			Listing:    toListingResponse(&results[i].Listing),
			Similarity: results[i].Similarity,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func toListingResponse(l *model.Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		SellerUID:   l.SellerUID,
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		PricePence:  l.PricePence,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   l.UpdatedAt.Format(time.RFC3339),
	}
}
