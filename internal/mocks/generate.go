// Package mocks provides mock implementations for testing the import job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRegistry := mocks.NewMockJobRegistry(ctrl)
//	mockRegistry.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRegistry interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_registry_mock.go github.com/lettermill/import-api/internal/core JobRegistry

// Generate mock for SupervisorRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=supervisor_repository_mock.go github.com/lettermill/import-api/internal/core SupervisorRepository

// Generate mock for DestinationStore interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=destination_store_mock.go github.com/lettermill/import-api/internal/core DestinationStore

// Generate mock for CacheRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/lettermill/import-api/internal/core CacheRepository
