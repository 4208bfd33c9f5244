package normalize

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mdnair2344/greenbasket/internal/domain/document"
	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
	"github.com/mdnair2344/greenbasket/internal/domain/model"
)

const maxRating = 5

// InventoryItem converts a crop document.
func (n *Normalizer) InventoryItem(doc document.Document) (model.InventoryItem, error) {
	data := doc.Data
	name := stringField(data, "name", "productName", "cropName")
	if name == "" {
		return model.InventoryItem{}, fmt.Errorf("%w: crop %s: missing name", domainErrors.ErrMalformedRecord, doc.ID)
	}
	qty, ok := toCount(data["quantity"])
	if !ok {
		return model.InventoryItem{}, fmt.Errorf("%w: crop %s: invalid quantity", domainErrors.ErrMalformedRecord, doc.ID)
	}
	price := decimal.Zero
	if raw, present := firstPresent(data, "pricePerUnit", "price", "unitPrice"); present {
		if p, ok := toNonNegative(raw); ok {
			price = p
		}
	}
	return model.InventoryItem{
		ProducerID:   stringField(data, document.OwnerField),
		ProductID:    doc.ID,
		Name:         name,
		Quantity:     qty,
		PricePerUnit: price,
		Category:     stringField(data, "category"),
		Emoji:        stringField(data, "emoji", "icon"),
	}, nil
}

// InventoryItems converts a batch, skipping malformed crops.
func (n *Normalizer) InventoryItems(docs []document.Document) []model.InventoryItem {
	items := make([]model.InventoryItem, 0, len(docs))
	for _, doc := range docs {
		item, err := n.InventoryItem(doc)
		if err != nil {
			n.logger.Warn("crop record rejected", slog.String("crop", doc.ID), slog.String("error", err.Error()))
			continue
		}
		items = append(items, item)
	}
	return items
}

// Reviews converts review documents, skipping ratings outside [0,5].
func (n *Normalizer) Reviews(docs []document.Document) []model.Review {
	reviews := make([]model.Review, 0, len(docs))
	for _, doc := range docs {
		rating, ok := toFloat(doc.Data["rating"])
		if !ok || rating < 0 || rating > maxRating {
			n.logger.Warn("review record rejected", slog.String("review", doc.ID))
			continue
		}
		reviews = append(reviews, model.Review{ProducerID: stringField(doc.Data, document.OwnerField), Rating: rating})
	}
	return reviews
}

// Certificates converts certificate documents, skipping ones without a
// readable expiry date.
func (n *Normalizer) Certificates(docs []document.Document) []model.Certificate {
	certs := make([]model.Certificate, 0, len(docs))
	for _, doc := range docs {
		validUntil, err := resolveDate(doc.Data, []string{"validUntil", "expiryDate", "expiresAt"}, n.loc)
		if err != nil {
			n.logger.Warn("certificate record rejected", slog.String("certificate", doc.ID), slog.String("error", err.Error()))
			continue
		}
		certs = append(certs, model.Certificate{
			ProducerID: stringField(doc.Data, document.OwnerField),
			Name:       stringField(doc.Data, "name", "title"),
			ValidUntil: validUntil,
		})
	}
	return certs
}
