package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const factoryABIJSON = `[
  {"anonymous":false,"inputs":[
    {"indexed":true,"name":"token0","type":"address"},
    {"indexed":true,"name":"token1","type":"address"},
    {"indexed":false,"name":"pair","type":"address"},
    {"indexed":false,"name":"","type":"uint256"}],
   "name":"PairCreated","type":"event"}
]`

const erc20ABIJSON = `[
  {"constant":true,"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const pairABIJSON = `[
  {"constant":true,"inputs":[],"name":"getReserves","outputs":[
    {"name":"reserve0","type":"uint112"},
    {"name":"reserve1","type":"uint112"},
    {"name":"blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const helperABIJSON = `[
  {"inputs":[
    {"internalType":"address","name":"token","type":"address"},
    {"internalType":"uint256","name":"slippagePercentage","type":"uint256"},
    {"internalType":"uint256","name":"deadline","type":"uint256"}],
   "name":"fightHoneypot","outputs":[],"stateMutability":"payable","type":"function"},
  {"stateMutability":"payable","type":"receive"}
]`

var (
	factoryABI = mustParseABI(factoryABIJSON)
	erc20ABI   = mustParseABI(erc20ABIJSON)
	pairABI    = mustParseABI(pairABIJSON)
	helperABI  = mustParseABI(helperABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("evm: invalid ABI: " + err.Error())
	}
	return parsed
}
