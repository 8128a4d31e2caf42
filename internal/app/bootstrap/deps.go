// internal/app/bootstrap/deps.go
package bootstrap

import "github.com/dalemusser/contactform/internal/app/features/page"

// Deps are the loaded dependencies the handlers share.
type Deps struct {
	// Pages holds the current host document.
	Pages *page.Store

	// Status reports which components bound to the current page. It is
	// refreshed on every page reload.
	Status *ComponentStatus
}
