package etherscan

import (
	"context"

	etherscanClient "github.com/Layr-Labs/contract-activity/pkg/clients/etherscan"
	"go.uber.org/zap"
)

type Etherscan struct {
	client *etherscanClient.EtherscanClient
	logger *zap.Logger
}

func NewEtherscan(ec *etherscanClient.EtherscanClient, l *zap.Logger) *Etherscan {
	return &Etherscan{
		client: ec,
		logger: l,
	}
}

func (e *Etherscan) Name() string {
	return "etherscan"
}

// FetchAbi calls the getabi action. Status "1" carries the ABI; anything
// else, such as an unverified contract, is logged and reported as no ABI.
func (e *Etherscan) FetchAbi(ctx context.Context, address string) (string, error) {
	res, err := e.client.GetContractAbi(ctx, address)
	if err != nil {
		return "", err
	}

	result, _ := res.ResultString()
	if !res.IsOk() {
		e.logger.Sugar().Errorw("Explorer returned no ABI for contract",
			zap.String("address", address),
			zap.String("status", res.Status),
			zap.String("message", res.Message),
			zap.String("result", result),
		)
		return "", nil
	}
	return result, nil
}
