package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dsemenov/skyfare/internal/repository"
	"github.com/dsemenov/skyfare/internal/service/flights"
	"github.com/dsemenov/skyfare/internal/service/pricing"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
	pricing pricing.PricingUseCase
}

func NewFlightHandler(service flights.FlightUseCase, pricing pricing.PricingUseCase) *FlightHandler {
	return &FlightHandler{service: service, pricing: pricing}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/search", h.search)
	router.GET("/:id", h.get)
	router.GET("/:id/price", h.price)
	router.POST("/:id/attempt", RequireUser(), h.attempt)
}

func (h *FlightHandler) list(c *gin.Context) {
	flights, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, flights)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) search(c *gin.Context) {
	departure := c.Query("departure")
	arrival := c.Query("arrival")
	date := c.Query("date")
	if departure == "" || arrival == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please provide departure, arrival and date"})
		return
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	passengers, _ := strconv.Atoi(c.DefaultQuery("passengers", "1"))

	matches, err := h.service.Search(c.Request.Context(), repository.FlightSearch{
		DepartureCity: departure,
		ArrivalCity:   arrival,
		Date:          day,
		Passengers:    passengers,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, matches)
}

// price forces a refresh so the quote reflects current demand.
func (h *FlightHandler) price(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	snapshot, err := h.pricing.RefreshPrice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *FlightHandler) attempt(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx := c.Request.Context()
	if err := h.pricing.RecordAttempt(ctx, id, currentUser(c)); err != nil {
		respondError(c, err)
		return
	}
	snapshot, err := h.pricing.RefreshPrice(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
