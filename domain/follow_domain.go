package domain

var (
	MessageSuccessFollow           = "subscribed successfully"
	MessageSuccessUnfollow         = "unsubscribed successfully"
	MessageSuccessGetSubscriptions = "success get subscriptions"

	MessageFailedFollow           = "failed to subscribe"
	MessageFailedUnfollow         = "failed to unsubscribe"
	MessageFailedGetSubscriptions = "failed to get subscriptions"
)

type (
	// Subscription is an author card as seen by one of their followers.
	Subscription struct {
		UserResponse
		Recipes      []RecipeShort `json:"recipes"`
		RecipesCount int64         `json:"recipes_count"`
	}
)
