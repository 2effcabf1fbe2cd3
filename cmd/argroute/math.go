package main

import (
	"fmt"
	"strconv"

	"github.com/rybkr/argroute/internal/cli"
)

type mathSumCommand struct{}

func (mathSumCommand) Description() string {
	return `Return sum of numbers.

	Every argument must be a number. With no arguments the sum is 0.`
}

func (mathSumCommand) Run(inv *cli.Invocation) (cli.Result, error) {
	nums, err := parseNumbers(inv.Positional())
	if err != nil {
		return cli.Result{}, err
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	inv.Println(formatNumber(sum))
	return cli.OK(), nil
}

type mathProdCommand struct{}

func (mathProdCommand) Description() string {
	return `Return product of numbers.

	Every argument must be a number. With no arguments the product is 1.`
}

func (mathProdCommand) Run(inv *cli.Invocation) (cli.Result, error) {
	nums, err := parseNumbers(inv.Positional())
	if err != nil {
		return cli.Result{}, err
	}
	prod := 1.0
	for _, n := range nums {
		prod *= n
	}
	inv.Println(formatNumber(prod))
	return cli.OK(), nil
}

func parseNumbers(args []string) ([]float64, error) {
	nums := make([]float64, 0, len(args))
	for _, a := range args {
		n, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", a)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
