package standalone

import (
	. "github.com/p-hoffmann/trextest/internal/harness"
)

func Smoke() *Suite {
	var node *Node

	return NewSuite().
		// 0
		Setup(func(r *Run) {
			node = r.Node("node")
		}).

		// 1
		Test("Literals Round-Trip", func(r *Run) {
			rows := r.Exec(node, "SELECT 1")
			Expect("SELECT 1", rows[0].Int(0), Is(int64(1)))

			rows = r.Exec(node, "SELECT 'hello'")
			Expect("SELECT 'hello'", rows[0].Str(0), Is("hello"))

			rows = r.Exec(node, "SELECT 3.25")
			Expect("SELECT 3.25", rows[0].Float(0), Is(3.25))

			rows = r.Exec(node, "SELECT 'it''s quoted'")
			Expect("escaped quote", rows[0].Str(0), Is("it's quoted"))
		}).

		// 2
		Test("Built-in Scalar Functions", func(r *Run) {
			rows := r.Exec(node, "SELECT epoch_ms()")
			Expect("SELECT epoch_ms()", rows[0].Int(0) > 0, Is(true))
		}).

		// 3
		Test("Create, Count, and Drop a Table", func(r *Run) {
			r.Exec(node, "CREATE TABLE orders AS SELECT * FROM range(1000)")

			rows := r.Exec(node, "SELECT COUNT(*) FROM orders")
			Expect("SELECT COUNT(*) FROM orders", rows[0].Int(0), Is(int64(1000)))

			r.Exec(node, "DROP TABLE orders")

			msg := r.ExecErr(node, "SELECT COUNT(*) FROM orders")
			Expect("count after drop", msg, Contains("does not exist"))
		}).

		// 4
		Test("Duplicate Tables Are Rejected", func(r *Run) {
			r.Exec(node, "CREATE TABLE users AS SELECT * FROM range(10)")

			msg := r.ExecErr(node, "CREATE TABLE users AS SELECT * FROM range(10)")
			Expect("duplicate create", msg, Contains("already exists"))

			r.Exec(node, "DROP TABLE users")
		}).

		// 5
		Test("Errors Do Not Wedge the Session", func(r *Run) {
			r.ExecErr(node, "BOGUS COMMAND")
			r.ExecErr(node, "SELECT nonexistent_fn()")

			rows := r.Exec(node, "SELECT 42")
			Expect("SELECT 42 after errors", rows[0].Int(0), Is(int64(42)))
		})
}
