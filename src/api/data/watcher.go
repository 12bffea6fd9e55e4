package data

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/itering/substrate-api-rpc/client"
	"github.com/itering/substrate-api-rpc/expand"
)

// Claim creation is acknowledged on-chain by a system.remark of the form
// "veristake:claim:<claimId>" signed by the poster. The watcher confirms
// matching pending claims into voting.
const remarkPrefix = "veristake:claim:"

func StartClaimWatcher(ctx context.Context, rpcURL string, store *Store) {
	api, err := client.ConnectSub(rpcURL)
	if err != nil {
		log.Printf("claim watcher connect: %v", err)
		return
	}

	sub, err := api.RPC.Chain.SubscribeNewHeads()
	if err != nil {
		log.Printf("claim watcher head sub: %v", err)
		return
	}

	go func() {
		for {
			select {
			case head := <-sub.Chan():
				hash := head.Hash()
				block, err := api.RPC.Chain.GetBlock(hash)
				if err != nil {
					continue
				}

				for _, ext := range block.Block.Extrinsics {
					remarkBytes, err := expand.DecodeRemark(ext.Method.Args)
					if err != nil || len(remarkBytes) == 0 {
						continue
					}
					remark := strings.TrimSpace(string(remarkBytes))
					if !strings.HasPrefix(remark, remarkPrefix) {
						continue
					}
					claimID := strings.TrimPrefix(remark, remarkPrefix)
					if claimID == "" {
						continue
					}

					signer := ext.Signature.Signer.AsID.ToHexString()
					blockHash := fmt.Sprintf("%v", hash)
					confirmed, err := store.ConfirmClaim(ctx, claimID, signer, blockHash, time.Now().UTC())
					if err != nil {
						log.Printf("claim watcher confirm %s: %v", claimID, err)
						continue
					}
					if confirmed {
						log.Printf("claim %s confirmed on-chain in block %s", claimID, blockHash)
					}
				}

			case <-ctx.Done():
				sub.Unsubscribe()
				return
			}
		}
	}()
}
