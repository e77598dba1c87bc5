package document

import (
	"fmt"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
)

// Load fetches a printable record of kind for the organization and maps it.
// Rows from other organizations surface as gorm.ErrRecordNotFound.
func Load(repos *repository.Repositories, org *models.Organization, kind string, id uint) (Document, error) {
	switch Kind(kind) {
	case KindInvoice:
		inv, err := repos.Invoice.GetByID(org.ID, id)
		if err != nil {
			return Document{}, err
		}
		return FromInvoice(org, inv), nil
	case KindQuotation:
		q, err := repos.Quotation.GetByID(org.ID, id)
		if err != nil {
			return Document{}, err
		}
		return FromQuotation(org, q), nil
	case KindReservation:
		r, err := repos.Reservation.GetByID(org.ID, id)
		if err != nil {
			return Document{}, err
		}
		return FromReservation(org, r), nil
	}
	return Document{}, fmt.Errorf("unknown document kind %q", kind)
}
