// README: Chat handlers for ride group threads, private threads and the contact list.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepool/internal/modules/chat"
	"ridepool/internal/modules/profile"
	"ridepool/internal/types"
)

type ChatHandler struct {
	chat     *chat.Service
	profiles *profile.Service
}

func NewChatHandler(chatSvc *chat.Service, profiles *profile.Service) *ChatHandler {
	return &ChatHandler{chat: chatSvc, profiles: profiles}
}

type sendMessageReq struct {
	Text string `json:"text"`
}

type chatRide struct {
	ID   types.ID `json:"id"`
	From string   `json:"from"`
	To   string   `json:"to"`
	Date string   `json:"date"`
	Time string   `json:"time"`
}

func (h *ChatHandler) Contacts(c *gin.Context) {
	contacts, err := h.chat.Contacts(c.Request.Context(), callerID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if contacts == nil {
		contacts = []chat.Contact{}
	}
	writeJSON(c, http.StatusOK, gin.H{"contacts": contacts})
}

func (h *ChatHandler) MyRides(c *gin.Context) {
	rides, err := h.chat.MyRides(c.Request.Context(), callerID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]chatRide, 0, len(rides))
	for _, r := range rides {
		out = append(out, chatRide{ID: r.ID, From: r.Route.From, To: r.Route.To, Date: r.Schedule.Date, Time: r.Schedule.Time})
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": out})
}

func (h *ChatHandler) ListGroup(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	msgs, err := h.chat.ListGroup(c.Request.Context(), id, callerID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeMessages(c, msgs)
}

func (h *ChatHandler) SendGroup(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, ok := resolveCaller(c, h.profiles)
	if !ok {
		return
	}
	m, err := h.chat.SendGroup(c.Request.Context(), chat.SendCommand{RideID: id, Sender: p.Actor().ActorSummary, Text: req.Text})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, m)
}

func (h *ChatHandler) ListPrivate(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	target, ok := targetID(c)
	if !ok {
		return
	}
	msgs, err := h.chat.ListPrivate(c.Request.Context(), id, callerID(c), target)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeMessages(c, msgs)
}

func (h *ChatHandler) SendPrivate(c *gin.Context) {
	id, ok := rideID(c)
	if !ok {
		return
	}
	target, ok := targetID(c)
	if !ok {
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, ok := resolveCaller(c, h.profiles)
	if !ok {
		return
	}
	m, err := h.chat.SendPrivate(c.Request.Context(), chat.PrivateCommand{
		RideID:   id,
		Sender:   p.Actor().ActorSummary,
		TargetID: target,
		Text:     req.Text,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, m)
}

func targetID(c *gin.Context) (types.ID, bool) {
	uid := c.Param("uid")
	if !isValidID(uid) {
		writeError(c, http.StatusBadRequest, "invalid user id")
		return "", false
	}
	return types.ID(uid), true
}

func writeMessages(c *gin.Context, msgs []chat.Message) {
	if msgs == nil {
		msgs = []chat.Message{}
	}
	writeJSON(c, http.StatusOK, gin.H{"messages": msgs})
}
