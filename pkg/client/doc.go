// Package client is the CertVault Go SDK.
//
// It wraps the CertVault HTTP API: anchoring batches of certificate records
// in the ledger and verifying candidate records against it.
//
// # Ingesting a certificate file
//
//	c := client.New("http://localhost:8080")
//	result, err := c.IngestFile(ctx, "graduates_2024.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("anchored %d certificates in tx %s\n", result.HashCount, result.TxID)
//
// The CSV must carry a header row with exactly the six certificate fields
// (RollNo, Name, Course, Branch, Grade, Year) in any order.
//
// # Verifying a candidate certificate
//
//	res, err := c.Verify(ctx, client.Record{
//	    RollNo: "1", Name: "Alice", Course: "CS",
//	    Branch: "AI", Grade: "A", Year: "2024",
//	})
//	if res.IsValid {
//	    fmt.Printf("issued %s by %s\n", res.Timestamp, res.Issuer)
//	}
//
// IsValid=false means the record was never anchored (or any field differs
// from what was anchored); it is a legitimate result, not an error. Errors
// are reserved for transport and ledger trouble.
package client
