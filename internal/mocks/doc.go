// Package mocks provides centralized fakes and mocks for testing.
//
// MemoryDB is an in-memory implementation of every store interface with the
// same semantics as the PostgreSQL stores. It is used to drive the review
// engine end to end without a database. The Testify* types are
// testify/mock implementations for tests that assert on individual calls.
//
// Usage:
//
//	db := mocks.NewMemoryDB("patient")
//	db.AddSubject(1, "subject-1", "patient")
//	db.AddTask(domain.Task{ID: 10, SubjectID: 1, Project: "KWords", Filename: "a.wav"})
//
//	cat, err := catalog.New(db.Tasks(), mocks.NewMockArtifactChecker(), logger)
//	svc, err := review.NewService(review.Dependencies{
//	    Catalog: cat, Reviewers: db.Reviewers(),
//	    States: db.States(), Annotations: db.Annotations(),
//	})
package mocks
