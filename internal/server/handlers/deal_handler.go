package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dealroom/internal/domain/models"
	"github.com/mamadbah2/dealroom/internal/service/dealroom"
	"github.com/mamadbah2/dealroom/internal/service/pricing"
)

// DealService is the deal room API exposed over HTTP.
type DealService interface {
	CreateDealRoom(ctx context.Context, in dealroom.CreateDealInput) (*models.Deal, error)
	GetDeal(ctx context.Context, dealID string) (*models.Deal, error)
	SubmitBid(ctx context.Context, dealID string, in dealroom.BidInput) (*dealroom.BidResult, error)
	RespondToBid(ctx context.Context, dealID, bidID string, in dealroom.ResponseInput) (*dealroom.ResponseResult, error)
	BuyNow(ctx context.Context, dealID string, in dealroom.BuyNowInput) (*dealroom.AgreementResult, error)
	RequestExtension(ctx context.Context, dealID, requesterUID string) (*models.Deal, error)
	RespondToExtension(ctx context.Context, dealID, responderUID string, accept bool) (*models.Deal, error)
	CancelDeal(ctx context.Context, dealID, actorUID string) (*models.Deal, error)
	PostMessage(ctx context.Context, dealID string, in dealroom.MessageInput) (*models.Message, error)
	ListMessages(ctx context.Context, dealID string) ([]models.Message, error)
	Snapshot(ctx context.Context, dealID string) (*models.DealSnapshot, error)
}

// TransactionService records delivery confirmations.
type TransactionService interface {
	ConfirmDelivery(ctx context.Context, transactionID, partyUID string, rating *float64) (*models.Transaction, error)
}

// VerificationService recomputes user verification.
type VerificationService interface {
	Refresh(ctx context.Context, uid string) (models.VerificationStats, error)
}

// DealHandler serves the deal room, transaction and verification endpoints.
type DealHandler struct {
	deals        DealService
	transactions TransactionService
	verification VerificationService
	logger       *zap.Logger
}

// NewDealHandler constructs the HTTP handler adapter.
func NewDealHandler(deals DealService, txs TransactionService, verification VerificationService, logger *zap.Logger) *DealHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DealHandler{deals: deals, transactions: txs, verification: verification, logger: logger}
}

type createDealRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	BuyerUID  string `json:"buyer_uid" binding:"required"`
	BuyerName string `json:"buyer_name"`
}

type bidRequest struct {
	BidderUID      string  `json:"bidder_uid"`
	BidderName     string  `json:"bidder_name"`
	BidderRole     string  `json:"bidder_role"`
	Volume         float64 `json:"volume"`
	PricePerTonne  float64 `json:"price_per_tonne"`
	DeliveryMethod string  `json:"delivery_method"`
	DeliveryDate   string  `json:"delivery_date"`
	Notes          string  `json:"notes"`
}

func (r bidRequest) input() dealroom.BidInput {
	return dealroom.BidInput{
		BidderUID:     r.BidderUID,
		BidderName:    r.BidderName,
		BidderRole:    models.BidderRole(r.BidderRole),
		Volume:        r.Volume,
		PricePerTonne: r.PricePerTonne,
		Delivery:      models.Delivery{Method: r.DeliveryMethod, Date: r.DeliveryDate},
		Notes:         r.Notes,
	}
}

type respondRequest struct {
	ResponderUID  string      `json:"responder_uid" binding:"required"`
	ResponderName string      `json:"responder_name"`
	Action        string      `json:"action" binding:"required"`
	Counter       *bidRequest `json:"counter"`
}

type buyNowRequest struct {
	BuyerUID       string  `json:"buyer_uid" binding:"required"`
	BuyerName      string  `json:"buyer_name"`
	Volume         float64 `json:"volume"`
	DeliveryMethod string  `json:"delivery_method"`
	DeliveryDate   string  `json:"delivery_date"`
}

type actorRequest struct {
	UID string `json:"uid" binding:"required"`
}

type extensionResponseRequest struct {
	UID    string `json:"uid" binding:"required"`
	Accept bool   `json:"accept"`
}

type messageRequest struct {
	SenderUID  string `json:"sender_uid" binding:"required"`
	SenderName string `json:"sender_name"`
	SenderRole string `json:"sender_role"`
	Text       string `json:"text"`
}

type confirmRequest struct {
	UID    string   `json:"uid" binding:"required"`
	Rating *float64 `json:"rating"`
}

// CreateDeal opens a deal room on a listing.
func (h *DealHandler) CreateDeal(c *gin.Context) {
	var req createDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	deal, err := h.deals.CreateDealRoom(c.Request.Context(), dealroom.CreateDealInput{
		ListingID: req.ListingID,
		BuyerUID:  req.BuyerUID,
		BuyerName: req.BuyerName,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, deal)
}

func (h *DealHandler) GetDeal(c *gin.Context) {
	deal, err := h.deals.GetDeal(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

// SubmitBid records an opening bid. Auto-rejected bids are still a 201.
func (h *DealHandler) SubmitBid(c *gin.Context) {
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	if req.BidderUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bidder_uid is required"})
		return
	}

	res, err := h.deals.SubmitBid(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *DealHandler) RespondToBid(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	in := dealroom.ResponseInput{
		ResponderUID:  req.ResponderUID,
		ResponderName: req.ResponderName,
		Action:        dealroom.ResponseAction(req.Action),
	}
	if req.Counter != nil {
		counter := req.Counter.input()
		in.Counter = &counter
	}

	res, err := h.deals.RespondToBid(c.Request.Context(), c.Param("id"), c.Param("bidId"), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *DealHandler) BuyNow(c *gin.Context) {
	var req buyNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	res, err := h.deals.BuyNow(c.Request.Context(), c.Param("id"), dealroom.BuyNowInput{
		BuyerUID:  req.BuyerUID,
		BuyerName: req.BuyerName,
		Volume:    req.Volume,
		Delivery:  models.Delivery{Method: req.DeliveryMethod, Date: req.DeliveryDate},
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *DealHandler) RequestExtension(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	deal, err := h.deals.RequestExtension(c.Request.Context(), c.Param("id"), req.UID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) RespondToExtension(c *gin.Context) {
	var req extensionResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	deal, err := h.deals.RespondToExtension(c.Request.Context(), c.Param("id"), req.UID, req.Accept)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) CancelDeal(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	deal, err := h.deals.CancelDeal(c.Request.Context(), c.Param("id"), req.UID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (h *DealHandler) PostMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	msg, err := h.deals.PostMessage(c.Request.Context(), c.Param("id"), dealroom.MessageInput{
		SenderUID:  req.SenderUID,
		SenderName: req.SenderName,
		SenderRole: models.BidderRole(req.SenderRole),
		Text:       req.Text,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *DealHandler) ListMessages(c *gin.Context) {
	msgs, err := h.deals.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ConfirmDelivery records a party's delivery confirmation and optional rating.
func (h *DealHandler) ConfirmDelivery(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	tx, err := h.transactions.ConfirmDelivery(c.Request.Context(), c.Param("id"), req.UID, req.Rating)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *DealHandler) RefreshVerification(c *gin.Context) {
	stats, err := h.verification.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Commission previews the commission owed on ?value=.
func (h *DealHandler) Commission(c *gin.Context) {
	value, err := strconv.ParseFloat(c.Query("value"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a number"})
		return
	}
	c.JSON(http.StatusOK, pricing.CalculateCommission(value))
}
