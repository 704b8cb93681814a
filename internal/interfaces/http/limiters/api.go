package limiters

import (
	"time"

	"github.com/turtacn/taskhub/internal/domain/models"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
	"github.com/turtacn/taskhub/pkg/constants"
)

// APIPolicies bound write operations per authenticated user. Requests without
// a user are left to the global throttle.
type APIPolicies struct {
	CreateProject middleware.Policy
	CreateTask    middleware.Policy
	UploadFile    middleware.Policy
	CreateComment middleware.Policy
	UpdateProfile middleware.Policy
}

// API builds the api family.
func API() APIPolicies {
	byUser := middleware.KeyByUser()
	skip := middleware.SkipUnauthenticated()
	policy := func(name string, max int64, message string) middleware.Policy {
		return middleware.Policy{
			RateLimit: models.RateLimit{
				Family:  constants.RateLimitFamilyAPI,
				Name:    name,
				Window:  time.Hour,
				Max:     max,
				Message: message,
			},
			KeyFunc:         byUser,
			SkipFunc:        skip,
			StandardHeaders: true,
		}
	}

	return APIPolicies{
		CreateProject: policy("create-project", 10, "Project creation limit reached, please try again later."),
		CreateTask:    policy("create-task", 50, "Task creation limit reached, please try again later."),
		UploadFile:    policy("upload-file", 20, "File upload limit reached, please try again later."),
		CreateComment: policy("create-comment", 100, "Comment limit reached, please try again later."),
		UpdateProfile: policy("update-profile", 10, "Too many profile updates, please try again later."),
	}
}

func (a APIPolicies) all() []middleware.Policy {
	return []middleware.Policy{a.CreateProject, a.CreateTask, a.UploadFile, a.CreateComment, a.UpdateProfile}
}
