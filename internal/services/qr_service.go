package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"strconv"

	"github.com/skip2/go-qrcode"

	"github.com/madio/backend/internal/store"
)

// QRService renders a report's position as a scannable geo URI so field
// crews can open the spot in a maps app without typing coordinates.
type QRService struct {
	rel store.RelationalStore
}

func NewQRService(rel store.RelationalStore) *QRService {
	return &QRService{rel: rel}
}

// LocationQR returns the geo URI for a report and a base64 PNG QR of it.
func (s *QRService) LocationQR(ctx context.Context, reportID int64) (string, string, error) {
	row, err := s.rel.GetReport(ctx, reportID)
	if err != nil {
		return "", "", err
	}

	geoURI := fmt.Sprintf("geo:%s,%s",
		strconv.FormatFloat(row.Latitude, 'f', -1, 64),
		strconv.FormatFloat(row.Longitude, 'f', -1, 64))

	qr, err := qrcode.New(geoURI, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	return geoURI, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
