package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
)

// CognitoGroupsAPI is the subset of the Cognito Identity Provider client
// used by the directory. Narrowed for fakes in tests.
type CognitoGroupsAPI interface {
	GetGroupWithContext(ctx aws.Context, input *cognitoidentityprovider.GetGroupInput, opts ...request.Option) (*cognitoidentityprovider.GetGroupOutput, error)
	CreateGroupWithContext(ctx aws.Context, input *cognitoidentityprovider.CreateGroupInput, opts ...request.Option) (*cognitoidentityprovider.CreateGroupOutput, error)
	DeleteGroupWithContext(ctx aws.Context, input *cognitoidentityprovider.DeleteGroupInput, opts ...request.Option) (*cognitoidentityprovider.DeleteGroupOutput, error)
	ListGroupsWithContext(ctx aws.Context, input *cognitoidentityprovider.ListGroupsInput, opts ...request.Option) (*cognitoidentityprovider.ListGroupsOutput, error)
	AdminListGroupsForUserWithContext(ctx aws.Context, input *cognitoidentityprovider.AdminListGroupsForUserInput, opts ...request.Option) (*cognitoidentityprovider.AdminListGroupsForUserOutput, error)
	AdminAddUserToGroupWithContext(ctx aws.Context, input *cognitoidentityprovider.AdminAddUserToGroupInput, opts ...request.Option) (*cognitoidentityprovider.AdminAddUserToGroupOutput, error)
	AdminRemoveUserFromGroupWithContext(ctx aws.Context, input *cognitoidentityprovider.AdminRemoveUserFromGroupInput, opts ...request.Option) (*cognitoidentityprovider.AdminRemoveUserFromGroupOutput, error)
}

// CognitoDirectoryConfig configures the Cognito-backed group directory.
type CognitoDirectoryConfig struct {
	// PoolID is the user pool whose groups back roles. Required.
	PoolID string

	// Region is the AWS region. Falls back to the SDK default chain when
	// empty. Ignored when API is set.
	Region string

	// API overrides the Cognito client. Used by tests.
	API CognitoGroupsAPI
}

// CognitoDirectory implements GroupDirectory against Cognito user pool
// groups. Group names double as IDs since Cognito has no separate group id.
type CognitoDirectory struct {
	poolID string
	api    CognitoGroupsAPI
}

// NewCognitoDirectory creates a Cognito-backed group directory.
func NewCognitoDirectory(config CognitoDirectoryConfig) (*CognitoDirectory, error) {
	if config.PoolID == "" {
		return nil, errors.New("rbac: pool id is required")
	}

	api := config.API
	if api == nil {
		awsCfg := aws.NewConfig()
		if config.Region != "" {
			awsCfg = awsCfg.WithRegion(config.Region)
		}
		sess, err := session.NewSession(awsCfg)
		if err != nil {
			return nil, fmt.Errorf("create AWS session: %w", err)
		}
		api = cognitoidentityprovider.New(sess)
	}

	return &CognitoDirectory{poolID: config.PoolID, api: api}, nil
}

// GetGroup returns the group with the given name.
func (d *CognitoDirectory) GetGroup(ctx context.Context, name string) (*Group, error) {
	if name == "" {
		return nil, ErrEmptyGroup
	}

	out, err := d.api.GetGroupWithContext(ctx, &cognitoidentityprovider.GetGroupInput{
		GroupName:  aws.String(name),
		UserPoolId: aws.String(d.poolID),
	})
	if err != nil {
		if isCognitoNotFound(err) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}

	return groupFromCognito(out.Group), nil
}

// CreateGroup creates a group. Creating an existing group succeeds and
// returns the existing group.
func (d *CognitoDirectory) CreateGroup(ctx context.Context, name, description string) (*Group, error) {
	if name == "" {
		return nil, ErrEmptyGroup
	}

	out, err := d.api.CreateGroupWithContext(ctx, &cognitoidentityprovider.CreateGroupInput{
		GroupName:   aws.String(name),
		UserPoolId:  aws.String(d.poolID),
		Description: aws.String(description),
	})
	if err != nil {
		var awsErr awserr.Error
		if errors.As(err, &awsErr) && awsErr.Code() == cognitoidentityprovider.ErrCodeGroupExistsException {
			return d.GetGroup(ctx, name)
		}
		return nil, fmt.Errorf("create group: %w", err)
	}

	return groupFromCognito(out.Group), nil
}

// DeleteGroup removes a group. Deleting a missing group is a no-op.
func (d *CognitoDirectory) DeleteGroup(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyGroup
	}

	_, err := d.api.DeleteGroupWithContext(ctx, &cognitoidentityprovider.DeleteGroupInput{
		GroupName:  aws.String(name),
		UserPoolId: aws.String(d.poolID),
	})
	if err != nil {
		if isCognitoNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// ListGroups returns all groups in the pool, following pagination.
func (d *CognitoDirectory) ListGroups(ctx context.Context) ([]Group, error) {
	var result []Group
	var nextToken *string

	for {
		out, err := d.api.ListGroupsWithContext(ctx, &cognitoidentityprovider.ListGroupsInput{
			UserPoolId: aws.String(d.poolID),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}

		for _, g := range out.Groups {
			result = append(result, *groupFromCognito(g))
		}

		if out.NextToken == nil {
			return result, nil
		}
		nextToken = out.NextToken
	}
}

// ListUserGroups returns the names of groups the user belongs to.
func (d *CognitoDirectory) ListUserGroups(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}

	var result []string
	var nextToken *string

	for {
		out, err := d.api.AdminListGroupsForUserWithContext(ctx, &cognitoidentityprovider.AdminListGroupsForUserInput{
			Username:   aws.String(userID),
			UserPoolId: aws.String(d.poolID),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list user groups: %w", err)
		}

		for _, g := range out.Groups {
			if g.GroupName != nil {
				result = append(result, *g.GroupName)
			}
		}

		if out.NextToken == nil {
			return result, nil
		}
		nextToken = out.NextToken
	}
}

// AddUserToGroup adds a membership.
func (d *CognitoDirectory) AddUserToGroup(ctx context.Context, userID, group string) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if group == "" {
		return ErrEmptyGroup
	}

	_, err := d.api.AdminAddUserToGroupWithContext(ctx, &cognitoidentityprovider.AdminAddUserToGroupInput{
		Username:   aws.String(userID),
		GroupName:  aws.String(group),
		UserPoolId: aws.String(d.poolID),
	})
	if err != nil {
		if isCognitoNotFound(err) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("add user to group: %w", err)
	}
	return nil
}

// RemoveUserFromGroup removes a membership.
func (d *CognitoDirectory) RemoveUserFromGroup(ctx context.Context, userID, group string) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if group == "" {
		return ErrEmptyGroup
	}

	_, err := d.api.AdminRemoveUserFromGroupWithContext(ctx, &cognitoidentityprovider.AdminRemoveUserFromGroupInput{
		Username:   aws.String(userID),
		GroupName:  aws.String(group),
		UserPoolId: aws.String(d.poolID),
	})
	if err != nil {
		if isCognitoNotFound(err) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("remove user from group: %w", err)
	}
	return nil
}

func groupFromCognito(g *cognitoidentityprovider.GroupType) *Group {
	if g == nil {
		return &Group{}
	}
	return &Group{
		ID:          aws.StringValue(g.GroupName),
		Name:        aws.StringValue(g.GroupName),
		Description: aws.StringValue(g.Description),
	}
}

func isCognitoNotFound(err error) bool {
	var awsErr awserr.Error
	return errors.As(err, &awsErr) && awsErr.Code() == cognitoidentityprovider.ErrCodeResourceNotFoundException
}

// Ensure CognitoDirectory implements GroupDirectory
var _ GroupDirectory = (*CognitoDirectory)(nil)
