package api

import (
	"net/http"
	"strconv"
	"time"

	"trade-service/internal/auth"
	"trade-service/internal/service"
	"trade-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	authService   *service.AuthService
	items         *service.ItemService
	offers        *service.OfferService
	notifications *service.NotificationService
	views         *service.ViewBuilder
	tokens        *auth.Manager
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *service.AuthService,
	items *service.ItemService,
	offers *service.OfferService,
	notifications *service.NotificationService,
	views *service.ViewBuilder,
	tokens *auth.Manager,
) *Handler {
	return &Handler{
		authService:   authService,
		items:         items,
		offers:        offers,
		notifications: notifications,
		views:         views,
		tokens:        tokens,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)

		public := v1.Group("", OptionalAuth(h.tokens))
		{
			public.GET("/listings", h.listListings)
			public.GET("/listings/:id", h.getListing)
		}

		protected := v1.Group("", AuthRequired(h.tokens))
		{
			protected.GET("/listings/:id/offers", h.listingOffers)

			protected.GET("/my-items", h.myItems)
			protected.POST("/my-items", h.createItem)
			protected.PUT("/my-items/:id", h.editItem)
			protected.DELETE("/my-items/:id", h.deleteItem)
			protected.POST("/my-items/:id/listing", h.listItem)
			protected.POST("/my-items/:id/unlist", h.unlistItem)
			protected.POST("/my-items/:id/availability", h.setAvailability)

			protected.GET("/offers/incoming", h.incomingOffers)
			protected.GET("/offers/outgoing", h.outgoingOffers)
			protected.GET("/offers/:id", h.getOffer)
			protected.POST("/offers", h.createOffer)
			protected.POST("/offers/:id/accept", h.acceptOffer)
			protected.POST("/offers/:id/reject", h.rejectOffer)
			protected.POST("/offers/:id/cancel", h.cancelOffer)
			protected.DELETE("/offers/:id", h.deleteOffer)

			protected.GET("/chats", h.listChats)
			protected.GET("/chats/:id/messages", h.chatMessages)
			protected.POST("/chats/:id/messages", h.sendMessage)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, token, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// listListings returns the open marketplace feed, excluding the viewer's
// own items when authenticated
func (h *Handler) listListings(c *gin.Context) {
	filter := service.ListingFilter{
		Search:       c.Query("q"),
		Category:     c.Query("category"),
		Condition:    c.Query("condition"),
		OfferPolicy:  c.Query("offer_type"),
		ExcludeOwner: actorID(c),
	}

	items, err := h.items.Listings(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": h.views.Listings(c.Request.Context(), items, actorID(c))})
}

func (h *Handler) getListing(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	item, err := h.items.GetListing(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"listing": h.views.Listing(c.Request.Context(), item, actorID(c))})
}

// listingOffers returns every offer on a listing; owner only
func (h *Handler) listingOffers(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	offers, err := h.offers.ByListing(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": h.views.Offers(c.Request.Context(), offers, actorID(c))})
}

func (h *Handler) myItems(c *gin.Context) {
	items, err := h.items.MyItems(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) createItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.items.CreateItem(c.Request.Context(), actorID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

func (h *Handler) editItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req service.EditItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.items.EditItem(c.Request.Context(), id, actorID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *Handler) deleteItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.items.DeleteItem(c.Request.Context(), id, actorID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) listItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		OfferPolicy string `json:"offer_policy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.items.ListItem(c.Request.Context(), id, actorID(c), req.OfferPolicy)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *Handler) unlistItem(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	item, err := h.items.UnlistItem(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *Handler) setAvailability(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		Available bool   `json:"available"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.items.SetAvailability(c.Request.Context(), id, actorID(c), req.Available, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *Handler) incomingOffers(c *gin.Context) {
	offers, err := h.offers.Incoming(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": h.views.Offers(c.Request.Context(), offers, actorID(c))})
}

func (h *Handler) outgoingOffers(c *gin.Context) {
	offers, err := h.offers.Outgoing(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": h.views.Offers(c.Request.Context(), offers, actorID(c))})
}

func (h *Handler) getOffer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	offer, err := h.offers.Get(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offer": h.views.Offer(c.Request.Context(), offer, actorID(c))})
}

func (h *Handler) createOffer(c *gin.Context) {
	var req service.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.offers.Create(c.Request.Context(), actorID(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"offer": h.views.Offer(c.Request.Context(), result.Offer, actorID(c))})
}

func (h *Handler) acceptOffer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// body is optional; reason defaults to sold
	_ = c.ShouldBindJSON(&req)

	result, err := h.offers.Accept(c.Request.Context(), id, actorID(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"offer":           h.views.Offer(c.Request.Context(), result.Offer, actorID(c)),
		"listing":         result.Listing,
		"rejected_offers": result.RejectedOffers,
	})
}

func (h *Handler) rejectOffer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	result, err := h.offers.Reject(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offer": h.views.Offer(c.Request.Context(), result.Offer, actorID(c))})
}

func (h *Handler) cancelOffer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	offer, err := h.offers.Cancel(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offer": h.views.Offer(c.Request.Context(), offer, actorID(c))})
}

func (h *Handler) deleteOffer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.offers.Delete(c.Request.Context(), id, actorID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) listChats(c *gin.Context) {
	chats, err := h.notifications.Chats(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": h.views.Chats(c.Request.Context(), chats, actorID(c))})
}

func (h *Handler) chatMessages(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	chat, messages, err := h.notifications.Messages(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat": chat, "messages": messages})
}

func (h *Handler) sendMessage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	msg, err := h.notifications.Send(c.Request.Context(), id, actorID(c), req.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// paramID parses the :id path segment; writes the 400 itself on failure
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
