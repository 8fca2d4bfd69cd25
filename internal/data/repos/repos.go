package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos/deals"
	"github.com/yungbote/buyerdesk-backend/internal/data/repos/documents"
	"github.com/yungbote/buyerdesk-backend/internal/data/repos/listings"
	"github.com/yungbote/buyerdesk-backend/internal/data/repos/workspace"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type BuyerRepo = workspace.BuyerRepo
type ItemRepo = workspace.ItemRepo

type BuyerFilter = workspace.BuyerFilter
type ItemFilter = workspace.ItemFilter
type PendingFilter = workspace.PendingFilter

type OfferRepo = deals.OfferRepo
type TaskRepo = deals.TaskRepo

type OfferFilter = deals.OfferFilter
type TaskFilter = deals.TaskFilter

type PropertyRepo = listings.PropertyRepo
type BuyerPropertyRepo = listings.BuyerPropertyRepo

type BuyerPropertyFilter = listings.BuyerPropertyFilter

type ArtifactRepo = documents.ArtifactRepo
type OfferTemplateRepo = documents.OfferTemplateRepo

func NewBuyerRepo(db *gorm.DB, log *logger.Logger) BuyerRepo {
	return workspace.NewBuyerRepo(db, log)
}
func NewItemRepo(db *gorm.DB, log *logger.Logger) ItemRepo { return workspace.NewItemRepo(db, log) }

func NewOfferRepo(db *gorm.DB, log *logger.Logger) OfferRepo { return deals.NewOfferRepo(db, log) }
func NewTaskRepo(db *gorm.DB, log *logger.Logger) TaskRepo   { return deals.NewTaskRepo(db, log) }

func NewPropertyRepo(db *gorm.DB, log *logger.Logger) PropertyRepo {
	return listings.NewPropertyRepo(db, log)
}
func NewBuyerPropertyRepo(db *gorm.DB, log *logger.Logger) BuyerPropertyRepo {
	return listings.NewBuyerPropertyRepo(db, log)
}

func NewArtifactRepo(db *gorm.DB, log *logger.Logger) ArtifactRepo {
	return documents.NewArtifactRepo(db, log)
}
func NewOfferTemplateRepo(db *gorm.DB, log *logger.Logger) OfferTemplateRepo {
	return documents.NewOfferTemplateRepo(db, log)
}
