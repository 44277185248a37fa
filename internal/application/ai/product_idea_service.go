package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
	gemini "github.com/taic/backend/internal/infrastructure/ai"
)

const (
	// DefaultIdeaCount is used when the merchant does not ask for a count
	DefaultIdeaCount = 5
	// MaxIdeaCount bounds a single brainstorming request
	MaxIdeaCount = 10
)

const ideaSystemInstruction = `You are a product strategist for an online marketplace.
You suggest concrete, sellable product ideas for independent merchants.
Respond with a JSON array only. Each element must have the keys
"name", "description", "suggested_price_range" and "tags" (array of strings).
Keep names under 80 characters and descriptions under 400 characters.`

// ProductIdeaService generates listing ideas for merchants and turns
// accepted ideas into draft listings
type ProductIdeaService struct {
	productRepo catalog.ProductRepository
	gateway     GeminiGateway
	logger      *zap.Logger
}

// NewProductIdeaService creates a new ProductIdeaService
func NewProductIdeaService(
	productRepo catalog.ProductRepository,
	gateway GeminiGateway,
	logger *zap.Logger,
) *ProductIdeaService {
	return &ProductIdeaService{
		productRepo: productRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// GenerateIdeas asks the model for listing suggestions in the merchant's
// niche. The response is parsed defensively and clamped to the requested
// count; a malformed provider response is treated as provider failure.
func (s *ProductIdeaService) GenerateIdeas(ctx context.Context, merchantID uuid.UUID, req GenerateIdeasRequest) (*GenerateIdeasResponse, error) {
	count := req.Count
	if count <= 0 {
		count = DefaultIdeaCount
	}
	if count > MaxIdeaCount {
		count = MaxIdeaCount
	}

	prompt := fmt.Sprintf("Suggest %d product ideas for the niche %q.", count, req.Niche)
	if strings.TrimSpace(req.Audience) != "" {
		prompt += fmt.Sprintf(" The target audience is %q.", req.Audience)
	}

	raw, err := s.gateway.GenerateJSON(ctx, gemini.JSONRequest{
		SystemInstruction: ideaSystemInstruction,
		Prompt:            prompt,
	})
	if err != nil {
		s.logger.Warn("Product idea generation failed",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err))
		return nil, mapProviderError(err)
	}

	ideas, err := parseIdeas(raw)
	if err != nil {
		s.logger.Warn("Product idea response could not be parsed",
			zap.String("merchant_id", merchantID.String()),
			zap.ByteString("response", raw),
			zap.Error(err))
		return nil, shared.NewDomainError("AI_PROVIDER_UNAVAILABLE", "The AI assistant returned an unusable response")
	}

	if len(ideas) > count {
		ideas = ideas[:count]
	}

	return &GenerateIdeasResponse{Ideas: ideas}, nil
}

// CreateDraftFromIdea creates a draft listing from an accepted idea.
// The listing carries the AI-origin flag and gets a slug derived from
// its name.
func (s *ProductIdeaService) CreateDraftFromIdea(ctx context.Context, merchantID uuid.UUID, req CreateDraftRequest) (*DraftProductResponse, error) {
	exists, err := s.productRepo.ExistsBySKU(ctx, merchantID, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("SKU_ALREADY_EXISTS", "A listing with this SKU already exists")
	}

	slug, err := s.availableSlug(ctx, merchantID, req.Name)
	if err != nil {
		return nil, err
	}

	var product *catalog.Product
	if req.Price != nil && req.Price.IsPositive() {
		product, err = catalog.NewProductWithPrice(merchantID, req.Name, slug, req.SKU, valueobject.NewMoneyUSD(*req.Price))
	} else {
		product, err = catalog.NewProduct(merchantID, req.Name, slug, req.SKU)
	}
	if err != nil {
		return nil, err
	}

	if req.Description != "" {
		if err := product.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}
	product.MarkAIGenerated()

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Draft listing created from AI idea",
		zap.String("merchant_id", merchantID.String()),
		zap.String("product_id", product.ID.String()))

	return &DraftProductResponse{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		SKU:         product.SKU,
		Status:      string(product.Status),
		AIGenerated: product.AIGenerated,
		CreatedAt:   product.CreatedAt,
	}, nil
}

// availableSlug derives a slug from the listing name and appends a short
// random suffix when the merchant already uses it
func (s *ProductIdeaService) availableSlug(ctx context.Context, merchantID uuid.UUID, name string) (string, error) {
	slug := SlugFromName(name)
	if slug == "" {
		return "", shared.NewDomainError("INVALID_NAME", "A slug cannot be derived from this name")
	}

	taken, err := s.productRepo.ExistsBySlug(ctx, merchantID, slug)
	if err != nil {
		return "", err
	}
	if !taken {
		return slug, nil
	}

	suffix := strings.Split(uuid.New().String(), "-")[0]
	return slug + "-" + suffix, nil
}

// parseIdeas decodes the model's JSON, accepting both a bare array and
// an object wrapping the array under "ideas". Entries without a name
// are dropped.
func parseIdeas(raw []byte) ([]ProductIdea, error) {
	var ideas []ProductIdea
	if err := json.Unmarshal(raw, &ideas); err != nil {
		var wrapped struct {
			Ideas []ProductIdea `json:"ideas"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("unexpected idea payload: %w", err)
		}
		ideas = wrapped.Ideas
	}

	valid := make([]ProductIdea, 0, len(ideas))
	for _, idea := range ideas {
		idea.Name = strings.TrimSpace(idea.Name)
		if idea.Name == "" {
			continue
		}
		valid = append(valid, idea)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no usable ideas in payload")
	}
	return valid, nil
}

// SlugFromName turns a listing name into a URL slug
func SlugFromName(name string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(sb.String(), "-")
	if len(slug) > 200 {
		slug = strings.Trim(slug[:200], "-")
	}
	return slug
}
