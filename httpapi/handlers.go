package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocmd "github.com/goliatone/go-command"
	connectorcommand "github.com/goliatone/go-salesforce-connector/command"
	"github.com/goliatone/go-salesforce-connector/core"
	connectorquery "github.com/goliatone/go-salesforce-connector/query"
	"github.com/goliatone/go-salesforce-connector/schema"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type fieldResponse struct {
	Type    schema.Rendering `json:"type"`
	Subtype string           `json:"subtype"`
	Options []schema.Option  `json:"options"`
}

type statusResponse struct {
	State          core.FlowState `json:"state"`
	HasCredentials bool           `json:"has_credentials"`
	Authenticated  bool           `json:"authenticated"`
	InstanceURL    string         `json:"instance_url,omitempty"`
	ClientID       string         `json:"client_id,omitempty"`
}

type logEntryResponse struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Code      int    `json:"code"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

type credentialsRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type revokeRequest struct {
	Token string `json:"token"`
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": errorPayload{Code: code, Message: message}}
}

// Callback completes the authorization redirect and sends the browser back
// to the settings surface with the outcome message.
func (h *Handler) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	collector := gocmd.NewResult[core.CallbackOutcome]()
	msg := connectorcommand.CompleteCallbackMessage{Params: core.CallbackParams{
		Code:  c.Query("code"),
		State: c.Query("state"),
	}}
	if err := h.facade.Commands().CompleteCallback.Execute(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		h.logger.Error("callback command failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody(core.ErrorInternal, "callback could not be processed"))
		return
	}
	outcome, _ := collector.Load()
	c.Redirect(http.StatusFound, settingsRedirect(outcome))
}

func settingsRedirect(outcome core.CallbackOutcome) string {
	target := strings.TrimSpace(outcome.RedirectURL)
	if target == "" {
		target = core.DefaultSettingsPath
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return core.DefaultSettingsPath
	}
	query := parsed.Query()
	if outcome.Message != "" {
		query.Set("message", outcome.Message)
	}
	if outcome.Severity != "" {
		query.Set("severity", string(outcome.Severity))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Catalog failures answer 400 with an empty payload; provider and internal
// error text is logged, never returned.
func (h *Handler) catalogFailure(c *gin.Context, err error, empty any) {
	mapped := core.MapError(err)
	h.logger.Warn("catalog request failed", "error", err, "text_code", mapped.TextCode)
	c.JSON(http.StatusBadRequest, gin.H{
		"data":  empty,
		"error": errorPayload{Code: mapped.TextCode, Message: safeCatalogMessage(mapped.TextCode)},
	})
}

func safeCatalogMessage(textCode string) string {
	switch textCode {
	case core.ErrorNotFound:
		return "unknown object or field"
	case core.ErrorBadInput:
		return "invalid request"
	default:
		return "metadata is unavailable"
	}
}

func (h *Handler) ListObjects(c *gin.Context) {
	options, err := h.facade.Queries().ListObjects.Query(c.Request.Context(), connectorquery.ListObjectsMessage{})
	if err != nil {
		h.catalogFailure(c, err, []schema.Option{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": options})
}

func (h *Handler) DescribeObject(c *gin.Context) {
	options, err := h.facade.Queries().DescribeObject.Query(c.Request.Context(), connectorquery.DescribeObjectMessage{
		Object: c.Param("object"),
	})
	if err != nil {
		h.catalogFailure(c, err, []schema.Option{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": options})
}

func (h *Handler) GetField(c *gin.Context) {
	field, err := h.facade.Queries().GetField.Query(c.Request.Context(), connectorquery.GetFieldMessage{
		Object: c.Param("object"),
		Field:  c.Param("field"),
	})
	if err != nil {
		h.catalogFailure(c, err, gin.H{})
		return
	}
	options := field.Options
	if options == nil {
		options = []schema.Option{}
	}
	c.JSON(http.StatusOK, gin.H{"data": fieldResponse{
		Type:    field.Rendered,
		Subtype: field.Subtype,
		Options: options,
	}})
}

func (h *Handler) AuthStatus(c *gin.Context) {
	status, err := h.facade.Queries().AuthStatus.Query(c.Request.Context(), connectorquery.AuthStatusMessage{})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": statusResponse{
		State:          status.State,
		HasCredentials: status.HasCredentials,
		Authenticated:  status.Authenticated,
		InstanceURL:    status.InstanceURL,
		ClientID:       status.ClientID,
	}})
}

func (h *Handler) Authorize(c *gin.Context) {
	collector := gocmd.NewResult[connectorcommand.AuthorizationURL]()
	msg := connectorcommand.InitiateAuthMessage{ClientID: c.Query("client_id")}
	if err := h.facade.Commands().InitiateAuth.Execute(gocmd.ContextWithResult(c.Request.Context(), collector), msg); err != nil {
		h.fail(c, err)
		return
	}
	authURL, _ := collector.Load()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"authorization_url": string(authURL)}})
}

func (h *Handler) Refresh(c *gin.Context) {
	collector := gocmd.NewResult[core.RefreshOutcome]()
	if err := h.facade.Commands().Refresh.Execute(gocmd.ContextWithResult(c.Request.Context(), collector), connectorcommand.RefreshMessage{}); err != nil {
		h.fail(c, err)
		return
	}
	outcome, _ := collector.Load()
	status := http.StatusOK
	if outcome.Err != nil {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"data": gin.H{
		"refreshed": outcome.Refreshed,
		"cleared":   outcome.Cleared,
		"message":   outcome.Message,
	}})
}

func (h *Handler) Revoke(c *gin.Context) {
	var body revokeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, errorBody(core.ErrorBadInput, "request body must be JSON"))
			return
		}
	}
	collector := gocmd.NewResult[core.RevokeOutcome]()
	msg := connectorcommand.RevokeMessage{Token: strings.TrimSpace(body.Token), UseStored: strings.TrimSpace(body.Token) == ""}
	if err := h.facade.Commands().Revoke.Execute(gocmd.ContextWithResult(c.Request.Context(), collector), msg); err != nil {
		h.fail(c, err)
		return
	}
	outcome, _ := collector.Load()
	status := http.StatusOK
	if outcome.Err != nil {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"data": gin.H{
		"success":  outcome.Success,
		"severity": outcome.Severity,
		"message":  outcome.Message,
	}})
}

func (h *Handler) SaveCredentials(c *gin.Context) {
	var body credentialsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(core.ErrorBadInput, "request body must be JSON"))
		return
	}
	err := h.facade.Commands().SaveCredentials.Execute(c.Request.Context(), connectorcommand.SaveCredentialsMessage{
		Credentials: core.Credentials{ClientID: body.ClientID, ClientSecret: body.ClientSecret},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListLogs(c *gin.Context) {
	page, perPage, ok := pagingParams(c)
	if !ok {
		c.JSON(http.StatusBadRequest, errorBody(core.ErrorBadInput, "page and per_page must be integers"))
		return
	}
	result, err := h.facade.Queries().ListLogs.Query(c.Request.Context(), connectorquery.ListLogsMessage{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	entries := make([]logEntryResponse, 0, len(result.Entries))
	for _, entry := range result.Entries {
		entries = append(entries, logEntryResponse{
			ID:        entry.ID,
			Timestamp: entry.Timestamp.UTC().Format(time.RFC3339),
			Code:      entry.Code,
			Severity:  string(entry.Severity),
			Message:   entry.Message,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"data": entries,
		"meta": gin.H{"total": result.Total, "page": result.Page, "per_page": result.PerPage},
	})
}

func pagingParams(c *gin.Context) (int, int, bool) {
	parse := func(name string) (int, bool) {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			return 0, true
		}
		value, err := strconv.Atoi(raw)
		return value, err == nil
	}
	page, ok := parse("page")
	if !ok {
		return 0, 0, false
	}
	perPage, ok := parse("per_page")
	if !ok {
		return 0, 0, false
	}
	return page, perPage, true
}

// fail writes the mapped envelope. Internal errors get a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	mapped := core.MapError(err)
	status := mapped.Code
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	message := mapped.Message
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err, "text_code", mapped.TextCode)
		message = "An unexpected error occurred"
	}
	c.JSON(status, errorBody(mapped.TextCode, message))
}
