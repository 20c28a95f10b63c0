package models

// UserProfile defines the structure for user profiles
type UserProfile struct {
	UserID     string `dynamodbav:"userId" json:"userId"`
	ExternalID string `dynamodbav:"externalId" json:"externalId"`
	Username   string `dynamodbav:"username" json:"username"`
	FullName   string `dynamodbav:"fullName" json:"fullName"`
	Image      string `dynamodbav:"image,omitempty" json:"image,omitempty"`
}

// ExternalIDLock pins an external auth id to a single profile row. The
// conditional put on externalId makes concurrent first sign-ins collapse to
// one profile.
type ExternalIDLock struct {
	ExternalID string `dynamodbav:"externalId" json:"externalId"`
	UserID     string `dynamodbav:"userId" json:"userId"`
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "UserProfiles"

// ExternalIDIndex is the GSI used to resolve the external auth id to a profile
const ExternalIDIndex = "externalId-index"

// ExternalIDLocksTable enforces one profile per external auth id
const ExternalIDLocksTable = "ExternalIdLocks"
