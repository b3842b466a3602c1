package main

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/studenthealthcard/registration/internal/registration/application/mocks"
)

func TestSeedInsertsCount(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()
	repo := mocks.NewMockRegistrationRepository(ctl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	err := seed(context.Background(), repo, seedOptions{count: 3, randomSeed: 1}, zerolog.Nop())
	require.NoError(t, err)
}

func TestSeedReturnsInsertErrors(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()
	repo := mocks.NewMockRegistrationRepository(ctl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("duplicate key"))

	err := seed(context.Background(), repo, seedOptions{count: 5, randomSeed: 1}, zerolog.Nop())
	require.ErrorContains(t, err, "insert registration 1")
	require.ErrorContains(t, err, "duplicate key")
}

func TestGenerateRegistrationIsReproducible(t *testing.T) {
	first := generateRegistration(newRand(42), 0)
	second := generateRegistration(newRand(42), 0)
	require.Equal(t, first, second)
	require.NotEmpty(t, first.Name)
	require.Contains(t, first.Email, "@example.com")
}
