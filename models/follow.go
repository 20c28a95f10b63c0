package models

// Follow is one edge of the follow graph. This core only reads it; writes
// belong to the social-graph surface.
type Follow struct {
	FollowerID  string `dynamodbav:"followerId" json:"followerId"`
	FollowingID string `dynamodbav:"followingId" json:"followingId"`
}

// FollowsTable is the DynamoDB table name for follow edges
const FollowsTable = "Follows"
