package collection

import (
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
	"github.com/kailas-cloud/geodex/internal/repository/schema"
)

// listFields are the index fields loaded when enumerating collections.
var listFields = []string{
	schema.CollectionFieldID,
	schema.CollectionFieldName,
	schema.CollectionFieldOrganization,
	schema.CollectionFieldContact,
	schema.CollectionFieldDescription,
}

// collectionDoc is the stored JSON shape of a collection.
type collectionDoc struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Contact      string `json:"contact"`
	Description  string `json:"description"`
}

func toDoc(c domcol.Collection) collectionDoc {
	return collectionDoc{
		ID:           c.ID(),
		Name:         c.Name(),
		Organization: c.Organization(),
		Contact:      c.Contact(),
		Description:  c.Description(),
	}
}

func (d collectionDoc) toDomain() domcol.Collection {
	return domcol.Reconstruct(d.ID, d.Name, d.Organization, d.Contact, d.Description)
}

func fromFields(m map[string]string) domcol.Collection {
	return domcol.Reconstruct(
		m[schema.CollectionFieldID],
		m[schema.CollectionFieldName],
		m[schema.CollectionFieldOrganization],
		m[schema.CollectionFieldContact],
		m[schema.CollectionFieldDescription],
	)
}
