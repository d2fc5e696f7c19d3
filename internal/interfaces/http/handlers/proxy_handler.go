package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/infrastructure/backend"
	"finstack-p2p.backend/internal/interfaces/http/middleware"
	"finstack-p2p.backend/internal/interfaces/http/response"
	"finstack-p2p.backend/internal/usecases"
	"finstack-p2p.backend/pkg/logger"
)

const maxKYCUploadBytes = 32 << 20

// Upstream is the finstack backend as seen by the proxy routes
type Upstream interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
	Configured() bool
}

// ProxyHandler forwards /api/fstack/* to the finstack backend with the
// caller's token
type ProxyHandler struct {
	upstream Upstream
	kyc      *usecases.KYCUsecase
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(upstream Upstream, kyc *usecases.KYCUsecase) *ProxyHandler {
	return &ProxyHandler{upstream: upstream, kyc: kyc}
}

// RequireBackend answers 500 on every proxy route while no backend URL is set
func (h *ProxyHandler) RequireBackend() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.upstream.Configured() {
			response.Error(c, domainerrors.NotConfigured())
			c.Abort()
			return
		}
		c.Next()
	}
}

// Fstack dispatches the customer proxy routes
// ANY /api/fstack/*path
func (h *ProxyHandler) Fstack(c *gin.Context) {
	path := c.Param("path")
	switch strings.TrimRight(path, "/") {
	case "/userkyc":
		if c.Request.Method == http.MethodPost {
			h.SubmitKYC(c)
			return
		}
	case "/merchant":
		h.MerchantAds(c)
		return
	}
	h.Forward(c, path)
}

// Forward relays the request unchanged to upstreamPath
func (h *ProxyHandler) Forward(c *gin.Context, upstreamPath string) {
	resp, err := h.upstream.Do(c.Request.Context(), backend.Request{
		Method:      c.Request.Method,
		Path:        upstreamPath,
		RawQuery:    c.Request.URL.RawQuery,
		Body:        c.Request.Body,
		ContentType: c.ContentType(),
		Token:       middleware.GetToken(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	writeUpstream(c, resp)
}

// MerchantAds maps the merchant ad resource onto the backend routes
// POST|GET|PATCH|DELETE /api/fstack/merchant
func (h *ProxyHandler) MerchantAds(c *gin.Context) {
	req := backend.Request{
		Method:      c.Request.Method,
		ContentType: c.ContentType(),
		Token:       middleware.GetToken(c),
	}

	switch c.Request.Method {
	case http.MethodPost:
		req.Path = "/ads"
		req.Body = c.Request.Body
	case http.MethodGet:
		req.Path = "/my-ads"
		req.RawQuery = c.Request.URL.RawQuery
	case http.MethodPatch, http.MethodDelete:
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, domainerrors.BadRequest("unreadable request body"))
			return
		}
		id := adIDFrom(c.Query("id"), body)
		if id == "" {
			response.Error(c, domainerrors.BadRequest("ad id is required"))
			return
		}
		req.Path = "/ads/" + url.PathEscape(id)
		if len(bytes.TrimSpace(body)) > 0 {
			req.Body = bytes.NewReader(body)
		}
		query := c.Request.URL.Query()
		query.Del("id")
		req.RawQuery = query.Encode()
	default:
		response.ErrorWithError(c, http.StatusMethodNotAllowed, domainerrors.CodeBadRequest, "method not allowed")
		return
	}

	resp, err := h.upstream.Do(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeUpstream(c, resp)
}

func adIDFrom(query string, body []byte) string {
	if id := strings.TrimSpace(query); id != "" {
		return id
	}
	var payload struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.ID) == 0 {
		return ""
	}
	return jsonScalar(payload.ID)
}

// SubmitKYC normalizes a JSON or multipart KYC form and forwards it
// POST /api/fstack/userkyc
func (h *ProxyHandler) SubmitKYC(c *gin.Context) {
	var sub *entities.KYCSubmission

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(maxKYCUploadBytes); err != nil {
			response.Error(c, domainerrors.BadRequest("invalid multipart form"))
			return
		}
		form := c.Request.MultipartForm
		sub = entities.NewKYCSubmission(formLookup(form.Value))
		sub.Documents = kycDocuments(form.File)
	} else {
		var payload map[string]json.RawMessage
		if err := json.NewDecoder(c.Request.Body).Decode(&payload); err != nil {
			response.Error(c, domainerrors.BadRequest("invalid JSON body"))
			return
		}
		sub = entities.NewKYCSubmission(jsonLookup(payload))
	}

	resp, err := h.kyc.Submit(c.Request.Context(), middleware.GetToken(c), sub)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeUpstream(c, resp)
}

func formLookup(values map[string][]string) entities.KYCFieldLookup {
	return func(names ...string) string {
		for _, n := range names {
			for _, v := range values[n] {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
		return ""
	}
}

func jsonLookup(payload map[string]json.RawMessage) entities.KYCFieldLookup {
	return func(names ...string) string {
		for _, n := range names {
			if raw, ok := payload[n]; ok {
				if v := jsonScalar(raw); v != "" {
					return v
				}
			}
		}
		return ""
	}
}

// jsonScalar renders a JSON string, number or bool as text
func jsonScalar(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func kycDocuments(files map[string][]*multipart.FileHeader) []entities.KYCDocument {
	var docs []entities.KYCDocument
	seen := map[string]bool{}
	for field, headers := range files {
		part, ok := entities.KYCDocumentFields[field]
		if !ok || seen[part] || len(headers) == 0 {
			continue
		}
		seen[part] = true
		fh := headers[0]
		docs = append(docs, entities.KYCDocument{
			Field:       part,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return docs
}

// writeUpstream answers with the backend response in the local envelope.
// JSON objects that already carry "success" pass through untouched.
func writeUpstream(c *gin.Context, resp *backend.Response) {
	if !resp.OK() {
		msg := backend.ExtractErrorMessage(resp.Status, resp.Body)
		if resp.Status == http.StatusUnauthorized {
			middleware.ClearSessionCookies(c)
		}
		logger.Debug(c.Request.Context(), "upstream rejected request",
			zap.Int("status", resp.Status), zap.String("error", msg))
		response.ErrorWithError(c, resp.Status, domainerrors.CodeUpstream, msg)
		return
	}

	if resp.IsJSON() {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(resp.Body, &envelope); err == nil {
			if _, ok := envelope["success"]; ok {
				c.Data(resp.Status, "application/json; charset=utf-8", resp.Body)
				return
			}
		}
		response.Success(c, resp.Status, json.RawMessage(resp.Body))
		return
	}

	if text := strings.TrimSpace(string(resp.Body)); text != "" {
		response.Success(c, resp.Status, text)
		return
	}
	response.Success(c, resp.Status, nil)
}
