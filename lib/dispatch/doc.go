/*
Package dispatch is the entry point for applications using kvmux.

A Dispatch is built from a Config that maps store names to backends:

	stores:
	  cache:
	    type: memory
	  users:
	    type: sqlite
	    path: users.db
	  shared:
	    type: remote
	    namespace: users
	remote:
	  endpoints: ["localhost:8080"]
	  transport: tcp
	  serializer: binary
	  shard_id: 100

Stores are opened by name and addressed by the returned Handle:

	d, err := dispatch.New(config)
	h, err := d.Open(ctx, "users")
	err = d.Set(ctx, h, "alice", []byte("admin"))
	ok, err := d.Exists(ctx, h, "alice")
	d.Close(h)

Errors carry a store.RetCode (see store.CodeOf). Handles that are not open
yield RetCInvalidStore, unknown names RetCNoSuchStore.

Every operation is counted in kvmux_ops_total{op,result} and timed in
kvmux_op_duration_seconds{op}.

A Dispatch is not safe for concurrent use. Wrap it with NewLocked to share it
between goroutines.
*/
package dispatch
