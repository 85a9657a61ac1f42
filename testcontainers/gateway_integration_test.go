package testcontainers

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/drivegate/drivegate"
)

type target struct {
	gateway   drivegate.Gateway
	container string
}

type gatewayTestSuite struct {
	suite.Suite
	targets map[string]target
}

func (s *gatewayTestSuite) SetupSuite() {
	starters := map[string]func(*testing.T) (drivegate.Gateway, string){
		"azure": startAzurite,
		"s3":    startLocalStack,
	}

	s.targets = make(map[string]target)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for scheme, start := range starters {
		wg.Add(1)
		go func(scheme string, start func(*testing.T) (drivegate.Gateway, string)) {
			defer wg.Done()
			gw, container := start(s.T())
			mu.Lock()
			s.targets[scheme] = target{gateway: gw, container: container}
			mu.Unlock()
		}(scheme, start)
	}
	wg.Wait()
}

// TestScheme runs conformance tests for each configured backend
func (s *gatewayTestSuite) TestScheme() {
	for scheme, tgt := range s.targets {
		fmt.Printf("************** TESTING scheme: %s **************\n", scheme)
		RunConformance(s.T(), tgt.gateway, tgt.container)
	}
}

func TestGatewayConformance(t *testing.T) {
	suite.Run(t, new(gatewayTestSuite))
}
