package model

import "github.com/gofrs/uuid/v5"

// Product is a sellable digital product as seen by checkout.
type Product struct {
	ID          uuid.UUID
	Title       string
	Price       Money
	IsPublished bool
}

// Service is a sellable service offering; its packages carry the prices.
type Service struct {
	ID          uuid.UUID
	Title       string
	IsPublished bool
}

// ServicePackage is one priced tier of a Service.
type ServicePackage struct {
	ID        uuid.UUID
	ServiceID uuid.UUID
	Title     string
	Price     Money
}
