/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// Chaincode moves an integer amount between two named accounts.
// It is the chaincode the default network installs as ex02.
type Chaincode struct{}

// Init expects: init <account> <balance> <account> <balance>
func (t *Chaincode) Init(stub shim.ChaincodeStubInterface) pb.Response {
	_, args := stub.GetFunctionAndParameters()
	if len(args) != 4 {
		return shim.Error("Incorrect number of arguments. Expecting 4")
	}
	for i := 0; i < 4; i += 2 {
		if _, err := strconv.Atoi(args[i+1]); err != nil {
			return shim.Error("Expecting integer value for asset holding")
		}
		if err := stub.PutState(args[i], []byte(args[i+1])); err != nil {
			return shim.Error(err.Error())
		}
	}
	fmt.Printf("Init %s = %s, %s = %s\n", args[0], args[1], args[2], args[3])
	return shim.Success(nil)
}

func (t *Chaincode) Invoke(stub shim.ChaincodeStubInterface) pb.Response {
	function, args := stub.GetFunctionAndParameters()
	switch function {
	case "invoke":
		return t.transfer(stub, args)
	case "delete":
		return t.delete(stub, args)
	case "query":
		return t.query(stub, args)
	}
	return shim.Error(`Invalid invoke function name. Expecting "invoke" "delete" "query"`)
}

func balance(stub shim.ChaincodeStubInterface, account string) (int, error) {
	raw, err := stub.GetState(account)
	if err != nil {
		return 0, fmt.Errorf("failed to get state of %s: %w", account, err)
	}
	if raw == nil {
		return 0, fmt.Errorf("entity %s not found", account)
	}
	return strconv.Atoi(string(raw))
}

// transfer expects: invoke <from> <to> <amount>
func (t *Chaincode) transfer(stub shim.ChaincodeStubInterface, args []string) pb.Response {
	if len(args) != 3 {
		return shim.Error("Incorrect number of arguments. Expecting 3")
	}
	from, to := args[0], args[1]
	amount, err := strconv.Atoi(args[2])
	if err != nil {
		return shim.Error("Invalid transaction amount, expecting an integer value")
	}
	fromBalance, err := balance(stub, from)
	if err != nil {
		return shim.Error(err.Error())
	}
	toBalance, err := balance(stub, to)
	if err != nil {
		return shim.Error(err.Error())
	}

	fromBalance -= amount
	toBalance += amount
	fmt.Printf("%s = %d, %s = %d\n", from, fromBalance, to, toBalance)

	if err := stub.PutState(from, []byte(strconv.Itoa(fromBalance))); err != nil {
		return shim.Error(err.Error())
	}
	if err := stub.PutState(to, []byte(strconv.Itoa(toBalance))); err != nil {
		return shim.Error(err.Error())
	}
	return shim.Success(nil)
}

func (t *Chaincode) delete(stub shim.ChaincodeStubInterface, args []string) pb.Response {
	if len(args) != 1 {
		return shim.Error("Incorrect number of arguments. Expecting 1")
	}
	if err := stub.DelState(args[0]); err != nil {
		return shim.Error("Failed to delete state")
	}
	return shim.Success(nil)
}

func (t *Chaincode) query(stub shim.ChaincodeStubInterface, args []string) pb.Response {
	if len(args) != 1 {
		return shim.Error("Incorrect number of arguments. Expecting name of the person to query")
	}
	raw, err := stub.GetState(args[0])
	if err != nil {
		return shim.Error(fmt.Sprintf(`{"Error":"Failed to get state for %s"}`, args[0]))
	}
	if raw == nil {
		return shim.Error(fmt.Sprintf(`{"Error":"Nil amount for %s"}`, args[0]))
	}
	return shim.Success(raw)
}

func main() {
	if err := shim.Start(new(Chaincode)); err != nil {
		fmt.Printf("Error starting chaincode: %s", err)
		os.Exit(1)
	}
}
