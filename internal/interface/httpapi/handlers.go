package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jinford/campus-ai/internal/core/account"
	"github.com/jinford/campus-ai/internal/core/aitask"
	"github.com/jinford/campus-ai/internal/core/marketplace"
)

// headerUserID は前段の認証ゲートウェイが付与する呼び出し元ユーザーID
const headerUserID = "X-User-ID"

// taskEventRequest はドキュメント作成イベント
// 従来形式（context.resource / value.name）と CloudEvents 形式（subject）の両方を受け付ける
type taskEventRequest struct {
	Resource string `json:"resource"`
	Context  struct {
		Resource string `json:"resource"`
	} `json:"context"`
	Value struct {
		Name string `json:"name"`
	} `json:"value"`
	Subject string `json:"subject"`
}

func (r taskEventRequest) event(c *gin.Context) aitask.Event {
	ev := aitask.Event{
		Resource:  r.Context.Resource,
		ValueName: r.Value.Name,
		Subject:   r.Subject,
	}
	if ev.Resource == "" {
		ev.Resource = r.Resource
	}
	// CloudEvents のバイナリモードでは subject はヘッダーで届く
	if ev.Subject == "" {
		ev.Subject = c.GetHeader("Ce-Subject")
	}
	return ev
}

func (s *Server) handleTaskEvent(c *gin.Context) {
	var req taskEventRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	result := s.services.Trigger.Handle(c.Request.Context(), req.event(c))
	c.JSON(resultStatus(result), result)
}

func (s *Server) handleRunBatch(c *gin.Context) {
	report, err := s.services.Poller.RunBatch(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type contactSellerRequest struct {
	Data struct {
		ListingID string `json:"listingId" binding:"required"`
		Message   string `json:"message" binding:"max=2000"`
	} `json:"data"`
}

func (s *Server) handleContactSeller(c *gin.Context) {
	buyerID := strings.TrimSpace(c.GetHeader(headerUserID))
	if buyerID == "" {
		s.respondError(c, marketplace.ErrUnauthenticated)
		return
	}

	var req contactSellerRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	out, err := s.services.Marketplace.ContactSeller(c.Request.Context(), marketplace.ContactSellerInput{
		BuyerID:   buyerID,
		ListingID: req.Data.ListingID,
		Message:   req.Data.Message,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": out})
}

type userCreatedRequest struct {
	UID         string `json:"uid" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	DisplayName string `json:"displayName" binding:"max=200"`
}

func (s *Server) handleUserCreated(c *gin.Context) {
	var req userCreatedRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.services.Account.BootstrapProfile(c.Request.Context(), account.AuthUser{
		UID:         req.UID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}
