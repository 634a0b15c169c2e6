// Package mocks provides mock implementations for testing the workflow core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the repository and side-effect port interfaces defined in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(job, true, nil)
package mocks

// Generate mock for TaskRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=task_repository_mock.go github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core TaskRepository

// Generate mock for EscrowRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=escrow_repository_mock.go github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core EscrowRepository

// Generate mock for ProofRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=proof_repository_mock.go github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core ProofRepository

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core JobRepository

// Generate mocks for the side-effect ports consumed by the worker runner.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=side_effect_ports_mock.go github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core RewardLedger,PaymentGateway,NotificationSink,TrustTierService
