package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"

	"go.uber.org/zap"

	"finstack-p2p.backend/internal/domain/entities"
	domainerrors "finstack-p2p.backend/internal/domain/errors"
	"finstack-p2p.backend/internal/infrastructure/backend"
	"finstack-p2p.backend/pkg/logger"
)

// PathSubmitKYC is the backend endpoint KYC submissions are forwarded to
const PathSubmitKYC = "/submitKyc"

// UpstreamDoer sends a raw request to the backend
type UpstreamDoer interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
}

// KYCUsecase validates and forwards identity verification submissions
type KYCUsecase struct {
	upstream UpstreamDoer
}

func NewKYCUsecase(upstream UpstreamDoer) *KYCUsecase {
	return &KYCUsecase{upstream: upstream}
}

// Submit forwards the submission as JSON, or as multipart when files were
// uploaded. The upstream response is returned whatever its status.
func (u *KYCUsecase) Submit(ctx context.Context, token string, sub *entities.KYCSubmission) (*backend.Response, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	req := backend.Request{Method: http.MethodPost, Path: PathSubmitKYC, Token: token}
	if len(sub.Documents) == 0 {
		body, err := json.Marshal(sub.Fields())
		if err != nil {
			return nil, domainerrors.InternalError(err)
		}
		req.Body = bytes.NewReader(body)
		req.ContentType = "application/json"
	} else {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			pw.CloseWithError(writeKYCMultipart(mw, sub))
		}()
		defer pr.Close()
		req.Body = pr
		req.ContentType = mw.FormDataContentType()
	}

	resp, err := u.upstream.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "KYC submission forwarded",
		zap.Int("status", resp.Status),
		zap.Bool("nigeria", sub.IsNigeria()),
		zap.Int("documents", len(sub.Documents)),
	)
	return resp, nil
}

func writeKYCMultipart(mw *multipart.Writer, sub *entities.KYCSubmission) error {
	fields := sub.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if sub.HasDocument(name) {
			continue
		}
		if err := mw.WriteField(name, fields[name]); err != nil {
			return err
		}
	}

	for _, doc := range sub.Documents {
		if err := copyDocument(mw, doc); err != nil {
			return fmt.Errorf("stream %s: %w", doc.Field, err)
		}
	}
	return mw.Close()
}

func copyDocument(mw *multipart.Writer, doc entities.KYCDocument) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, doc.Field, doc.Filename))
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	src, err := doc.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(part, src)
	return err
}
