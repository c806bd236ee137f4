package model

// User is a mess member as exposed by the profile service's `users`
// table. Only the fields the booking and ledger code reads are mapped.
//
// Fields:
//
//	Email – unique email address, used as the user's identity.
//	Name  – display name.
type User struct {
	Email string // users.email
	Name  string // users.name
}

// Mess is a meal-subscription provider as stored in the `messes` table.
// PricePerMeal and SubscriptionPlan are nullable; the ledger falls back to
// them when a member has no recorded payments.
//
// Fields:
//
//	ID               – opaque mess identifier.
//	Email            – owner's login email.
//	OwnerName        – owner's display name.
//	MessName         – display name of the mess.
//	PricePerMeal     – price of one meal (nullable).
//	SubscriptionPlan – either a day count (<= 100) or a flat fee (> 100).
type Mess struct {
	ID               string // messes.id
	Email            string // messes.email
	OwnerName        string // messes.owner_name
	MessName         string // messes.mess_name
	PricePerMeal     *int   // messes.price_per_meal (nullable)
	SubscriptionPlan *int   // messes.subscription_plan (nullable)
}
