/*
Package nsstore implements the standalone key-value store addressed by numeric
namespace ids.

A KeyValue owns one sqlite location. Namespaces are opened by name and get a
small integer id; every data operation takes that id. Opening a namespace never
touches storage, the database is opened on the first data operation.

	kv := nsstore.New(sqlstore.Path("data.db"), nil)
	defer kv.Shutdown()

	ns, err := kv.Open("users")
	if err != nil { ... }
	defer kv.Close(ns)

	err = kv.Set(ctx, ns, "alice", []byte("admin"))
*/
package nsstore
