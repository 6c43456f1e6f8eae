package usecase

import (
	"context"
	"testing"

	"resort-booking/internal/dto/request"
	"resort-booking/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	email := " Bob@Example.com "
	gender := " Male"
	dob := "1990-04-12"

	resp, err := f.svc.User.UpdateProfile(ctx, f.bob.ID, &request.UpdateProfileRequest{
		Name:        " Bob Kumar ",
		Email:       &email,
		Gender:      &gender,
		DateOfBirth: &dob,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob Kumar", resp.Name)
	require.NotNil(t, resp.Email)
	assert.Equal(t, "bob@example.com", *resp.Email)
	require.NotNil(t, resp.Gender)
	assert.Equal(t, "male", *resp.Gender)
	require.NotNil(t, resp.DateOfBirth)
	assert.Equal(t, dob, *resp.DateOfBirth)

	profile, err := f.svc.User.GetProfile(ctx, f.bob.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.DateOfBirth)
	assert.Equal(t, dob, *profile.DateOfBirth)
	assert.Equal(t, "male", *profile.Gender)
}

func TestUpdateProfile_RejectsBadDateOfBirth(t *testing.T) {
	f := newFixture(t)

	for _, dob := range []string{"12/04/1990", "2999-01-01"} {
		dob := dob
		_, err := f.svc.User.UpdateProfile(context.Background(), f.bob.ID, &request.UpdateProfileRequest{
			Name:        "Bob",
			DateOfBirth: &dob,
		})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err), dob)
	}
}
