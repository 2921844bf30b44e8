// Package fetch provides the single HTTP GET capability used to download the
// export manifest and its shard files.
//
// One Client is built per run and shared by every request so connections are
// reused. Consumers depend on the Fetcher interface so tests can substitute
// an in-memory transport.
//
// Any status outside 2xx is returned as *TransferError; requests are never
// retried.
//
// # Usage
//
//	client := fetch.NewClient(fetch.WithTimeout(10 * time.Minute))
//	body, err := client.Fetch(ctx, shardURL)
//	if err != nil {
//	    return err
//	}
//	defer body.Close()
package fetch
