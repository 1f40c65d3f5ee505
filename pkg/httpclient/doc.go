// Package httpclient provides the network primitives of the transfer
// manager: a typed client for the storage backend (presigned credentials,
// batch deletion and thumbnails) and an executor which writes file bytes
// directly to a presigned URL, reporting progress as it goes.
//
// Create a client with:
//
//	client, err := httpclient.New("http://localhost:8080/api")
//	if err != nil {
//	   panic(err)
//	}
//
// Then request a credential and upload a file:
//
//	cred, err := client.RequestWriteCredential(ctx, file.ContentType())
//	err = client.Execute(ctx, *cred, file, func(percent int) {
//	   fmt.Println(percent)
//	})
package httpclient
