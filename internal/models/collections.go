package models

// Collection paths used across the app.
const (
	UsersCollection         = "users"
	PostsCollection         = "posts"
	SubscriptionsCollection = "subscriptions"
	NotificationsCollection = "notifications"
)

// CommentsCollection returns the path of a post's comments sub-collection.
func CommentsCollection(postID string) string {
	return PostsCollection + "/" + postID + "/comments"
}
