// Package policy holds the role permission table and the ownership checks
// applied on top of it.
package policy

import "marketplace/internal/models"

// Principal is the authenticated caller of a request.
type Principal struct {
	ID    string
	Email string
	Role  models.Role
}

// IsAdmin reports whether the caller has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// Action names an operation guarded by a role allow-list.
type Action string

const (
	ActionViewProfile       Action = "view_profile"
	ActionPlaceOrder        Action = "place_order"
	ActionViewOwnOrders     Action = "view_own_orders"
	ActionViewOrder         Action = "view_order"
	ActionManageProducts    Action = "manage_products"
	ActionViewSellerOrders  Action = "view_seller_orders"
	ActionViewSellerStats   Action = "view_seller_stats"
	ActionUploadImages      Action = "upload_images"
	ActionUpdateOrderStatus Action = "update_order_status"
	ActionManageUsers       Action = "manage_users"
	ActionViewAllProducts   Action = "view_all_products"
	ActionViewAllOrders     Action = "view_all_orders"
	ActionViewPlatformStats Action = "view_platform_stats"
)

var (
	everyone      = []models.Role{models.RoleCustomer, models.RoleSeller, models.RoleAdmin}
	sellersAdmins = []models.Role{models.RoleSeller, models.RoleAdmin}
	adminsOnly    = []models.Role{models.RoleAdmin}
)

var permissions = map[Action][]models.Role{
	ActionViewProfile:       everyone,
	ActionPlaceOrder:        everyone,
	ActionViewOwnOrders:     everyone,
	ActionViewOrder:         everyone,
	ActionManageProducts:    sellersAdmins,
	ActionViewSellerOrders:  sellersAdmins,
	ActionViewSellerStats:   sellersAdmins,
	ActionUploadImages:      sellersAdmins,
	ActionUpdateOrderStatus: sellersAdmins,
	ActionManageUsers:       adminsOnly,
	ActionViewAllProducts:   adminsOnly,
	ActionViewAllOrders:     adminsOnly,
	ActionViewPlatformStats: adminsOnly,
}

// Roles returns the allow-list for action. Unknown actions allow nobody.
func Roles(action Action) []models.Role {
	return permissions[action]
}

// Allowed reports whether role may perform action.
func Allowed(action Action, role models.Role) bool {
	for _, r := range permissions[action] {
		if r == role {
			return true
		}
	}
	return false
}

// OwnsOrAdmin is the ownership gate: admins pass regardless of ownership.
func OwnsOrAdmin(p Principal, ownerID string) bool {
	return p.IsAdmin() || (ownerID != "" && p.ID == ownerID)
}

// CanViewOrder allows the ordering customer, any seller with an item in the
// order, and admins.
func CanViewOrder(p Principal, o *models.Order) bool {
	if OwnsOrAdmin(p, o.CustomerID) {
		return true
	}
	return p.Role == models.RoleSeller && o.HasSeller(p.ID)
}

// CanManageOrder allows admins and sellers owning at least one item.
func CanManageOrder(p Principal, o *models.Order) bool {
	if p.IsAdmin() {
		return true
	}
	return p.Role == models.RoleSeller && o.HasSeller(p.ID)
}
