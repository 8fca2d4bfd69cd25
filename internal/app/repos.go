package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type Repos struct {
	Buyer         repos.BuyerRepo
	Item          repos.ItemRepo
	Offer         repos.OfferRepo
	Task          repos.TaskRepo
	Property      repos.PropertyRepo
	BuyerProperty repos.BuyerPropertyRepo
	Artifact      repos.ArtifactRepo
	OfferTemplate repos.OfferTemplateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Buyer:         repos.NewBuyerRepo(db, log),
		Item:          repos.NewItemRepo(db, log),
		Offer:         repos.NewOfferRepo(db, log),
		Task:          repos.NewTaskRepo(db, log),
		Property:      repos.NewPropertyRepo(db, log),
		BuyerProperty: repos.NewBuyerPropertyRepo(db, log),
		Artifact:      repos.NewArtifactRepo(db, log),
		OfferTemplate: repos.NewOfferTemplateRepo(db, log),
	}
}
