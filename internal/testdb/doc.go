// Package testdb provides utilities for database integration tests.
//
// Tests run against the database named by DATABASE_URL and are skipped when it
// is unset. The schema is migrated once per process with the embedded goose
// migrations. Each test should run inside WithTx, which rolls back when the
// test completes, so tests can run in parallel without cleanup:
//
//	func TestMyFeature(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        subject := testdb.InsertSubject(t, tx, "subject-1", "patient")
//	        taskID := testdb.InsertTask(t, tx, subject, testdb.TaskFixture{Project: "KWords"})
//	        ...
//	    })
//	}
package testdb
